package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"backupmgr/internal/registry"
)

func dbCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Create or delete the job registry",
	}
	cmd.AddCommand(dbCreateCmd(g), dbDeleteCmd(g))
	return cmd
}

func dbCreateCmd(g *globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty job registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := registry.Exists(cfg.Database)
			if err != nil {
				return err
			}
			if exists {
				if !force {
					return fmt.Errorf("registry %s already exists, use --force to recreate it", cfg.Database)
				}
				if err := registry.Remove(cfg.Database); err != nil {
					return err
				}
			}

			store, err := registry.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created registry %s\n", cfg.Database)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Drop an existing registry first")
	return cmd
}

func dbDeleteCmd(g *globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the job registry and every job in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			exists, err := registry.Exists(cfg.Database)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("registry %s does not exist", cfg.Database)
			}

			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete %s and all registered jobs?", cfg.Database))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := registry.Remove(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted registry %s\n", cfg.Database)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globals holds flags shared by every subcommand.
type globals struct {
	configPath string
}

func rootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "backupmgr",
		Short:         "Run scheduled file, database and S3 backups with retention",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file (default ./backupmgr.yaml)")
	root.AddCommand(versionCmd(), runCmd(g), daemonCmd(g), taskCmd(g), dbCmd(g))
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "backupmgr %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

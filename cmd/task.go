package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"backupmgr/internal/job"
)

func taskCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage registered backup jobs",
	}
	cmd.AddCommand(taskListCmd(g), taskAddCmd(g), taskDeleteCmd(g))
	return cmd
}

func taskListCmd(g *globals) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs (enabled only unless --all)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := openRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), !all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs registered.")
				return nil
			}
			for _, j := range jobs {
				fmt.Fprintln(out, j.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled jobs")
	return cmd
}

// addFlags are the flags that make `task add` non-interactive.
var addFlags = []string{"name", "kind", "recurrence", "source", "destination"}

func taskAddCmd(g *globals) *cobra.Command {
	var (
		p       job.Params
		sources []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new job",
		Long: "Register a new job. Without flags an interactive form is shown.\n\n" +
			"Source settings are given as key=value pairs, for example:\n" +
			"  --source source_path=/srv/data\n" +
			"  --source server=sql01 --source database=erp --source username=sa --source password=...\n" +
			"  --source bucket=media --source prefix=site/ --source region=eu-west-1",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			interactive := true
			for _, name := range addFlags {
				if cmd.Flags().Changed(name) {
					interactive = false
					break
				}
			}

			if interactive {
				if err := promptJob(&p); err != nil {
					return err
				}
			} else {
				p.Source, err = parseSource(sources)
				if err != nil {
					return err
				}
			}

			j, err := job.New(p)
			if err != nil {
				return err
			}

			store, err := openRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			j, err = store.Add(cmd.Context(), j)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added job %s\n%s\n", j.ID, j.String())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Name, "name", "", "Job name")
	f.StringVar(&p.Kind, "kind", "", "Job kind: "+kindNames())
	f.StringVar(&p.Recurrence, "recurrence", "daily", "daily, weekly or monthly")
	f.StringArrayVar(&sources, "source", nil, "Source setting as key=value (repeatable)")
	f.StringVar(&p.Destination, "destination", "", "Directory the backups are written to")
	f.BoolVar(&p.Enabled, "enabled", true, "Whether the job takes part in runs")
	return cmd
}

func taskDeleteCmd(g *globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a job from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := openRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			j, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete job %s '%s'?", j.ID, j.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := store.Delete(cmd.Context(), j.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", j.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// numericKeys are source settings decoded as integers.
var numericKeys = map[string]bool{"port": true}

func parseSource(pairs []string) (map[string]any, error) {
	src := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --source %q, want key=value", kv)
		}
		if numericKeys[k] {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid --source %s: %w", k, err)
			}
			src[k] = n
			continue
		}
		src[k] = v
	}
	return src, nil
}

func kindNames() string {
	var names []string
	for _, k := range job.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

// promptJob asks for the common job fields, then for the kind's source settings.
func promptJob(p *job.Params) error {
	p.Recurrence = string(job.Daily)
	p.Enabled = true

	kinds := make([]huh.Option[string], 0, len(job.Kinds()))
	for _, k := range job.Kinds() {
		kinds = append(kinds, huh.NewOption(k.String(), k.String()))
	}

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Name").Value(&p.Name).Validate(required("name")),
		huh.NewSelect[string]().Title("Kind").Options(kinds...).Value(&p.Kind),
		huh.NewSelect[string]().Title("Recurrence").
			Options(huh.NewOptions(string(job.Daily), string(job.Weekly), string(job.Monthly))...).
			Value(&p.Recurrence),
		huh.NewInput().Title("Destination directory").Value(&p.Destination).Validate(required("destination")),
		huh.NewConfirm().Title("Enabled").Value(&p.Enabled),
	)).Run()
	if err != nil {
		return err
	}

	values := map[string]*string{}
	bind := func(key string) *string {
		v := new(string)
		values[key] = v
		return v
	}

	var fields []huh.Field
	switch job.Kind(p.Kind) {
	case job.KindFile:
		fields = append(fields,
			huh.NewInput().Title("Source path").Value(bind("source_path")).Validate(required("source path")),
		)
	case job.KindDatabase:
		engine := bind("engine")
		*engine = job.EngineMSSQL
		fields = append(fields,
			huh.NewSelect[string]().Title("Engine").Options(huh.NewOptions(job.EngineMSSQL, job.EngineMySQL)...).Value(engine),
			huh.NewInput().Title("Server").Value(bind("server")),
			huh.NewInput().Title("Port (blank for default)").Value(bind("port")),
			huh.NewInput().Title("Database").Value(bind("database")),
			huh.NewInput().Title("Username (blank for trusted connection)").Value(bind("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(bind("password")),
		)
	case job.KindS3:
		fields = append(fields,
			huh.NewInput().Title("Bucket").Value(bind("bucket")).Validate(required("bucket")),
			huh.NewInput().Title("Prefix").Value(bind("prefix")),
			huh.NewInput().Title("Region").Value(bind("region")),
			huh.NewInput().Title("Endpoint (blank for AWS)").Value(bind("endpoint")),
			huh.NewInput().Title("Access key id (blank for default credentials)").Value(bind("access_key_id")),
			huh.NewInput().Title("Secret access key").EchoMode(huh.EchoModePassword).Value(bind("secret_access_key")),
		)
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	var pairs []string
	for k, v := range values {
		if *v != "" {
			pairs = append(pairs, k+"="+*v)
		}
	}
	p.Source, err = parseSource(pairs)
	return err
}

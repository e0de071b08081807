package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"backupmgr/internal/job"
	"backupmgr/pkg/names"
)

// DatabaseStrategy dumps a database through the engine's command line tool.
// Passwords are handed over in the environment, never on the command line.
type DatabaseStrategy struct {
	Runner    CommandRunner
	MSSQLPath string
	MySQLPath string
}

func (*DatabaseStrategy) Kind() job.Kind { return job.KindDatabase }

func (s *DatabaseStrategy) Execute(ctx context.Context, j job.Job, rc RunContext) (*Artifact, error) {
	src, err := job.LoadAs[*job.DatabaseConfig](j)
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "load source", Err: err}
	}
	cfg, err := src.Resolve()
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "load source", Err: err}
	}

	switch cfg.Engine {
	case job.EngineMySQL:
		return s.mysql(ctx, j, cfg, rc)
	default:
		return s.mssql(ctx, j, cfg, rc)
	}
}

// mssql asks the server to write a full backup to the destination. The path
// is on the database server, so it is neither created nor cleaned up here.
func (s *DatabaseStrategy) mssql(ctx context.Context, j job.Job, cfg job.DatabaseConfig, rc RunContext) (*Artifact, error) {
	target := filepath.Join(j.Destination, names.DatabaseArtifact(cfg.Database, rc.Stamp, ".bak"))

	server := cfg.Server
	if cfg.Port > 0 {
		server = fmt.Sprintf("%s,%d", cfg.Server, cfg.Port)
	}

	query := fmt.Sprintf("BACKUP DATABASE %s TO DISK = '%s' WITH FORMAT",
		cfg.Database, strings.ReplaceAll(target, "'", "''"))

	cmd := Command{
		Path: s.MSSQLPath,
		Args: []string{"-S", server, "-b", "-Q", query},
	}
	if cfg.Username != "" {
		cmd.Args = append(cmd.Args, "-U", cfg.Username)
		cmd.Env = append(cmd.Env, "SQLCMDPASSWORD="+cfg.Password)
	} else {
		cmd.Args = append(cmd.Args, "-E")
	}

	if err := s.run(ctx, j, cmd); err != nil {
		return nil, err
	}
	return &Artifact{Path: target, Size: sizeOf(target)}, nil
}

func (s *DatabaseStrategy) mysql(ctx context.Context, j job.Job, cfg job.DatabaseConfig, rc RunContext) (*Artifact, error) {
	if err := os.MkdirAll(j.Destination, 0o755); err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "create destination", Err: err}
	}
	target := filepath.Join(j.Destination, names.DatabaseArtifact(cfg.Database, rc.Stamp, ".sql"))

	cmd := Command{
		Path: s.MySQLPath,
		Args: []string{
			"-h", cfg.Server,
			"-P", strconv.Itoa(cfg.Port),
			"-u", cfg.Username,
			"--result-file=" + target,
			"--single-transaction",
			"--routines",
			"--triggers",
			cfg.Database,
		},
	}
	if cfg.Password != "" {
		cmd.Env = append(cmd.Env, "MYSQL_PWD="+cfg.Password)
	}

	if err := s.run(ctx, j, cmd); err != nil {
		_ = os.Remove(target)
		return nil, err
	}
	return &Artifact{Path: target, Size: sizeOf(target)}, nil
}

func (s *DatabaseStrategy) run(ctx context.Context, j job.Job, cmd Command) error {
	zerolog.Ctx(ctx).Debug().
		Str("command", cmd.String()).
		Strs("env", cmd.EnvKeys()).
		Msg("running backup command")

	if err := s.Runner.Run(ctx, cmd); err != nil {
		return &ExecutionError{Job: j.Name, Op: "run " + filepath.Base(cmd.Path), Err: err}
	}
	return nil
}

func sizeOf(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

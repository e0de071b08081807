package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/job"
)

type stubRunner struct {
	mu   sync.Mutex
	cmds []Command
	err  error
	// write, when set, creates the file named by --result-file.
	write bool
}

func (r *stubRunner) Run(_ context.Context, c Command) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()

	if r.write {
		for _, a := range c.Args {
			if p, ok := strings.CutPrefix(a, "--result-file="); ok {
				if err := os.WriteFile(p, []byte("-- dump"), 0o644); err != nil {
					return err
				}
			}
		}
	}
	return r.err
}

func dbJob(dest string, src *job.DatabaseConfig) job.Job {
	return job.Job{
		ID:          "2",
		Name:        "erp",
		Kind:        job.KindDatabase,
		Recurrence:  job.Daily,
		Source:      src,
		Destination: dest,
	}
}

func TestDatabaseStrategy_MSSQL(t *testing.T) {
	runner := &stubRunner{}
	s := &DatabaseStrategy{Runner: runner, MSSQLPath: "sqlcmd", MySQLPath: "mysqldump"}

	j := dbJob("/var/backups", &job.DatabaseConfig{
		Server: "sql01", Database: "erp", Username: "backup", Password: "hunter2",
	})
	art, err := s.Execute(context.Background(), j, NewRunContext(testStamp))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/backups", "erp_20240115093000.bak"), art.Path)

	require.Len(t, runner.cmds, 1)
	cmd := runner.cmds[0]
	assert.Equal(t, "sqlcmd", cmd.Path)
	assert.Contains(t, cmd.Args, "-S")
	assert.Contains(t, cmd.Args, "sql01")
	assert.Contains(t, cmd.Args, "backup")
	assert.Contains(t, cmd.String(), "BACKUP DATABASE erp TO DISK = '"+art.Path+"' WITH FORMAT")
	assert.NotContains(t, cmd.String(), "hunter2")
	assert.Equal(t, []string{"SQLCMDPASSWORD=hunter2"}, cmd.Env)
	assert.Equal(t, []string{"SQLCMDPASSWORD"}, cmd.EnvKeys())
}

func TestDatabaseStrategy_MSSQLTrustedConnection(t *testing.T) {
	runner := &stubRunner{}
	s := &DatabaseStrategy{Runner: runner, MSSQLPath: "sqlcmd"}

	j := dbJob("/b", &job.DatabaseConfig{Server: "sql01", Port: 1433, Database: "erp"})
	_, err := s.Execute(context.Background(), j, NewRunContext(testStamp))
	require.NoError(t, err)

	cmd := runner.cmds[0]
	assert.Contains(t, cmd.Args, "-E")
	assert.Contains(t, cmd.Args, "sql01,1433")
	assert.Empty(t, cmd.Env)
}

func TestDatabaseStrategy_MySQL(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dumps")
	runner := &stubRunner{write: true}
	s := &DatabaseStrategy{Runner: runner, MSSQLPath: "sqlcmd", MySQLPath: "/usr/bin/mysqldump"}

	j := dbJob(dest, &job.DatabaseConfig{
		Engine:           job.EngineMySQL,
		ConnectionString: "shop:pa55@tcp(db.internal:3307)/shop",
	})
	art, err := s.Execute(context.Background(), j, NewRunContext(testStamp))
	require.NoError(t, err)

	want := filepath.Join(dest, "shop_20240115093000.sql")
	assert.Equal(t, want, art.Path)
	assert.Equal(t, int64(7), art.Size)

	cmd := runner.cmds[0]
	assert.Equal(t, []string{
		"-h", "db.internal", "-P", "3307", "-u", "shop",
		"--result-file=" + want, "--single-transaction", "--routines", "--triggers", "shop",
	}, cmd.Args)
	assert.Equal(t, []string{"MYSQL_PWD=pa55"}, cmd.Env)
}

func TestDatabaseStrategy_CommandFails(t *testing.T) {
	dest := t.TempDir()
	runner := &stubRunner{write: true, err: &CommandError{Tool: "mysqldump", ExitCode: 1, Output: "Access denied"}}
	s := &DatabaseStrategy{Runner: runner, MySQLPath: "mysqldump"}

	j := dbJob(dest, &job.DatabaseConfig{Engine: job.EngineMySQL, Server: "h", Database: "shop", Username: "u"})
	_, err := s.Execute(context.Background(), j, NewRunContext(testStamp))
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "Access denied")

	_, statErr := os.Stat(filepath.Join(dest, "shop_20240115093000.sql"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "partial dump removed")
}

func TestExecRunner(t *testing.T) {
	err := ExecRunner{}.Run(context.Background(), Command{Path: "backupmgr-no-such-tool"})
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, -1, cmdErr.ExitCode)

	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	err = ExecRunner{}.Run(context.Background(), Command{
		Path: "sh",
		Args: []string{"-c", `echo "$BACKUPMGR_TEST" >&2; exit 3`},
		Env:  []string{"BACKUPMGR_TEST=from-env"},
	})
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "sh", cmdErr.Tool)
	assert.Contains(t, cmdErr.Output, "from-env")

	assert.NoError(t, ExecRunner{}.Run(context.Background(), Command{Path: "sh", Args: []string{"-c", "exit 0"}}))
}

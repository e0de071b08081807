package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/job"
)

var testStamp = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func fileJob(source, dest string) job.Job {
	return job.Job{
		ID:          "1",
		Name:        "files",
		Kind:        job.KindFile,
		Recurrence:  job.Daily,
		Enabled:     true,
		Source:      &job.FileConfig{SourcePath: source},
		Destination: dest,
	}
}

func TestFileStrategy_SingleFile(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "report.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n1,2\n"), 0o640))
	mtime := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dest := filepath.Join(tmp, "out", "nested")
	art, err := FileStrategy{}.Execute(context.Background(), fileJob(src, dest), NewRunContext(testStamp))
	require.NoError(t, err)

	want := filepath.Join(dest, "report_20240115093000.csv")
	assert.Equal(t, want, art.Path)
	assert.Equal(t, int64(8), art.Size)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	fi, err := os.Stat(want)
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(mtime), "modification time preserved")
	assert.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
}

func TestFileStrategy_Directory(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep", "leaf.bin"), []byte("leafdata"), 0o600))

	dest := filepath.Join(tmp, "backups")
	art, err := FileStrategy{}.Execute(context.Background(), fileJob(src+string(filepath.Separator), dest), NewRunContext(testStamp))
	require.NoError(t, err)

	root := filepath.Join(dest, "data_20240115093000")
	assert.Equal(t, root, art.Path)
	assert.Equal(t, int64(11), art.Size)

	fi, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	top, err := os.ReadFile(filepath.Join(root, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(top))

	leaf, err := os.ReadFile(filepath.Join(root, "sub", "deep", "leaf.bin"))
	require.NoError(t, err)
	assert.Equal(t, "leafdata", string(leaf))
}

func TestFileStrategy_DirectoryTargetExists(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "data")
	require.NoError(t, os.Mkdir(src, 0o755))
	dest := filepath.Join(tmp, "backups")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "data_20240115093000"), 0o755))

	_, err := FileStrategy{}.Execute(context.Background(), fileJob(src, dest), NewRunContext(testStamp))
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "copy tree", execErr.Op)
}

func TestFileStrategy_MissingSource(t *testing.T) {
	tmp := t.TempDir()
	_, err := FileStrategy{}.Execute(context.Background(),
		fileJob(filepath.Join(tmp, "nope.txt"), filepath.Join(tmp, "out")), NewRunContext(testStamp))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStrategy_WrongSourceType(t *testing.T) {
	j := fileJob("/x", t.TempDir())
	j.Source = &job.S3Config{Bucket: "b"}
	_, err := FileStrategy{}.Execute(context.Background(), j, NewRunContext(testStamp))
	assert.Error(t, err)
}

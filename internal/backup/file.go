package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"backupmgr/internal/job"
	"backupmgr/pkg/names"
)

// FileStrategy copies a file or a directory tree into the destination.
// Single files keep their extension; directories become a directory named
// <stem>_<stamp>. Symlinks are followed and their targets copied.
type FileStrategy struct{}

func (FileStrategy) Kind() job.Kind { return job.KindFile }

func (FileStrategy) Execute(ctx context.Context, j job.Job, rc RunContext) (*Artifact, error) {
	logger := zerolog.Ctx(ctx)

	cfg, err := job.LoadAs[*job.FileConfig](j)
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "load source", Err: err}
	}

	info, err := os.Stat(cfg.SourcePath)
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "stat source", Err: err}
	}

	if err := os.MkdirAll(j.Destination, 0o755); err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "create destination", Err: err}
	}

	var (
		target string
		size   int64
	)
	if info.IsDir() {
		target = filepath.Join(j.Destination, names.DirArtifact(cfg.SourcePath, rc.Stamp))
		if _, err := os.Lstat(target); err == nil {
			return nil, &ExecutionError{Job: j.Name, Op: "copy tree", Err: fmt.Errorf("%s already exists", target)}
		}
		logger.Debug().Str("source", cfg.SourcePath).Str("target", target).Msg("copying directory")
		size, err = copyTree(ctx, cfg.SourcePath, target)
		if err != nil {
			return nil, &ExecutionError{Job: j.Name, Op: "copy tree", Err: err}
		}
	} else {
		target = filepath.Join(j.Destination, names.FileArtifact(cfg.SourcePath, rc.Stamp))
		logger.Debug().Str("source", cfg.SourcePath).Str("target", target).Msg("copying file")
		size, err = copyFile(cfg.SourcePath, target)
		if err != nil {
			return nil, &ExecutionError{Job: j.Name, Op: "copy file", Err: err}
		}
	}

	return &Artifact{Path: target, Size: size}, nil
}

// copyTree recursively copies src into dst, which must not exist. Directory
// modes and times are applied after their contents are written.
func copyTree(ctx context.Context, src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dst, 0o700); err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		fi, err := os.Stat(from)
		if err != nil {
			return total, err
		}

		var n int64
		if fi.IsDir() {
			n, err = copyTree(ctx, from, to)
		} else {
			n, err = copyFile(from, to)
		}
		if err != nil {
			return total, err
		}
		total += n
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return total, err
	}
	return total, os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// copyFile copies content, permission bits and modification time. The access
// time is set to the modification time.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return n, err
	}
	return n, os.Chtimes(dst, info.ModTime(), info.ModTime())
}

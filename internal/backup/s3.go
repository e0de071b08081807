package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"backupmgr/internal/job"
	"backupmgr/pkg/names"
	s3client "backupmgr/pkg/s3"
)

// S3API is the subset of the S3 client the strategy needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ClientFunc builds a client for one job's bucket settings.
type S3ClientFunc func(ctx context.Context, opts s3client.Options) (S3API, error)

// S3Strategy downloads every object under a prefix into
// <destination>/<bucket>_<stamp>/, keeping keys relative to the prefix.
type S3Strategy struct {
	NewClient S3ClientFunc
}

// NewS3Strategy returns a strategy backed by the AWS SDK.
func NewS3Strategy() *S3Strategy {
	return &S3Strategy{
		NewClient: func(ctx context.Context, opts s3client.Options) (S3API, error) {
			return s3client.NewClient(ctx, opts)
		},
	}
}

func (*S3Strategy) Kind() job.Kind { return job.KindS3 }

func (s *S3Strategy) Execute(ctx context.Context, j job.Job, rc RunContext) (*Artifact, error) {
	logger := zerolog.Ctx(ctx)

	cfg, err := job.LoadAs[*job.S3Config](j)
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "load source", Err: err}
	}

	client, err := s.NewClient(ctx, s3client.Options{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "create s3 client", Err: err}
	}

	target := filepath.Join(j.Destination, names.Artifact(cfg.Bucket, rc.Stamp, ""))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, &ExecutionError{Job: j.Name, Op: "create destination", Err: err}
	}

	size, count, err := s.download(ctx, client, cfg, target)
	if err != nil {
		_ = os.RemoveAll(target)
		return nil, &ExecutionError{Job: j.Name, Op: "download", Err: err}
	}

	logger.Debug().Str("bucket", cfg.Bucket).Int("objects", count).Int64("size", size).Msg("bucket downloaded")
	return &Artifact{Path: target, Size: size}, nil
}

func (s *S3Strategy) download(ctx context.Context, client S3API, cfg *job.S3Config, target string) (int64, int, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(cfg.Bucket)}
	if cfg.Prefix != "" {
		input.Prefix = aws.String(cfg.Prefix)
	}

	var (
		total int64
		count int
	)
	paginator := s3.NewListObjectsV2Paginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return total, count, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}

			dst := filepath.Join(target, objectPath(cfg.Prefix, key))
			n, err := s.getObject(ctx, client, cfg.Bucket, key, dst)
			if err != nil {
				return total, count, err
			}
			if obj.LastModified != nil {
				_ = os.Chtimes(dst, *obj.LastModified, *obj.LastModified)
			}
			total += n
			count++
		}
	}
	return total, count, nil
}

func (s *S3Strategy) getObject(ctx context.Context, client S3API, bucket, key, dst string) (int64, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return n, nil
}

// objectPath maps a key to a relative local path under the prefix. Keys can
// never climb out of the target directory.
func objectPath(prefix, key string) string {
	rel := strings.TrimPrefix(key, prefix)
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" || rel == "." {
		rel = path.Base(key)
	}
	return filepath.FromSlash(rel)
}

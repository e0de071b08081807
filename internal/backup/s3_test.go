package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/job"
	s3client "backupmgr/pkg/s3"
)

type fakeBucket struct {
	objects map[string]string
	failKey string
	opts    s3client.Options
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	modified := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k), LastModified: aws.Time(modified)})
		}
	}
	return out, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.objects[key]))}, nil
}

func s3Strategy(b *fakeBucket) *S3Strategy {
	return &S3Strategy{NewClient: func(_ context.Context, opts s3client.Options) (S3API, error) {
		b.opts = opts
		return b, nil
	}}
}

func s3Job(dest string, cfg *job.S3Config) job.Job {
	return job.Job{ID: "4", Name: "assets", Kind: job.KindS3, Recurrence: job.Daily, Source: cfg, Destination: dest}
}

func TestS3Strategy_DownloadsPrefix(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{
		"site/index.html":   "<html>",
		"site/img/logo.png": "png",
		"site/img/":         "",
		"other/ignored.txt": "nope",
		"site/../../escape": "contained",
	}}
	dest := t.TempDir()

	art, err := s3Strategy(bucket).Execute(context.Background(), s3Job(dest, &job.S3Config{
		Bucket: "media", Prefix: "site/", Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "s",
	}), NewRunContext(testStamp))
	require.NoError(t, err)

	root := filepath.Join(dest, "media_20240115093000")
	assert.Equal(t, root, art.Path)
	assert.Equal(t, int64(len("<html>")+len("png")+len("contained")), art.Size)
	assert.Equal(t, "eu-west-1", bucket.opts.Region)
	assert.Equal(t, "AKIA", bucket.opts.AccessKeyID)

	data, err := os.ReadFile(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(data))

	_, err = os.Stat(filepath.Join(root, "img", "logo.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "escape"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(root, "ignored.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestS3Strategy_ObjectFailureFailsJob(t *testing.T) {
	bucket := &fakeBucket{
		objects: map[string]string{"a.txt": "a", "b.txt": "b"},
		failKey: "b.txt",
	}
	dest := t.TempDir()

	_, err := s3Strategy(bucket).Execute(context.Background(), s3Job(dest, &job.S3Config{Bucket: "docs"}), NewRunContext(testStamp))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.txt")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial download removed")
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b.txt"), objectPath("root/", "root/a/b.txt"))
	assert.Equal(t, "b.txt", objectPath("", "b.txt"))
	assert.Equal(t, "etc", objectPath("x/", "x/../../etc"))
	assert.Equal(t, "file", objectPath("file", "file"))
}

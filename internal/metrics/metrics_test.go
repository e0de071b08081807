package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backupmgr/internal/backup"
	"backupmgr/internal/executor"
	"backupmgr/internal/job"
)

func TestRecorder_Record(t *testing.T) {
	r := New()

	r.Record(backup.Outcome{Kind: job.KindFile, Status: backup.StatusSucceeded, Duration: 2 * time.Second, Pruned: 3})
	r.Record(backup.Outcome{Kind: job.KindFile, Status: backup.StatusSucceeded, PruneErrors: []error{errors.New("busy")}})
	r.Record(backup.Outcome{Kind: job.KindDatabase, Status: backup.StatusFailed})
	r.Record(backup.Outcome{Kind: job.KindS3, Status: backup.StatusSkipped})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("file", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("database", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("s3", "skipped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.pruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pruneFailures))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestRecorder_RunFinished(t *testing.T) {
	r := New()
	finished := time.Date(2024, time.January, 15, 1, 0, 0, 0, time.UTC)

	r.RunFinished(&executor.Report{
		FinishedAt: finished,
		Outcomes: []backup.Outcome{
			{Status: backup.StatusFailed},
			{Status: backup.StatusSucceeded},
		},
	})

	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.lastRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lastRunFailed))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Record(backup.Outcome{Kind: job.KindFile, Status: backup.StatusSucceeded})

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `backupmgr_job_outcomes_total{kind="file",status="succeeded"} 1`))
	assert.Contains(t, body, "backupmgr_last_run_timestamp_seconds")
}

package jobs

import (
	"context"
	"sync"

	"github.com/lifesciencesignals/radar/internal/digest"
)

// DigestJob runs the daily digest on the scheduler
type DigestJob struct {
	job *digest.Job

	mu   sync.Mutex
	last *digest.RunResult
}

// NewDigestJob wraps a digest job
func NewDigestJob(job *digest.Job) *DigestJob {
	return &DigestJob{job: job}
}

// Name returns the job name
func (j *DigestJob) Name() string {
	return j.job.Name()
}

// Schedule returns the cron schedule (daily, 7 AM by default)
func (j *DigestJob) Schedule() string {
	return j.job.Schedule()
}

// Run sends the digest. Per-org failures fail the run so it is retried;
// orgs already delivered today are skipped by their claim.
func (j *DigestJob) Run(ctx context.Context) error {
	result, err := j.job.Run(ctx)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.last = result
	j.mu.Unlock()

	return result.Err()
}

// LastSummary returns the result of the latest completed run
func (j *DigestJob) LastSummary() interface{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	return j.last
}

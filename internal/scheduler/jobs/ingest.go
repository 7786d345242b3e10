package jobs

import (
	"context"
	"sync"

	"github.com/lifesciencesignals/radar/internal/ingest"
)

// IngestJob polls RSS feeds on the scheduler
type IngestJob struct {
	ingester *ingest.Ingester

	mu   sync.Mutex
	last *ingest.Result
}

// NewIngestJob wraps an ingester
func NewIngestJob(ingester *ingest.Ingester) *IngestJob {
	return &IngestJob{ingester: ingester}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return j.ingester.Name()
}

// Schedule returns the cron schedule (every 30 minutes by default)
func (j *IngestJob) Schedule() string {
	return j.ingester.Schedule()
}

// Run ingests every enabled feed
func (j *IngestJob) Run(ctx context.Context) error {
	result, err := j.ingester.Run(ctx)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.last = result
	j.mu.Unlock()

	return result.Err()
}

// LastSummary returns the result of the latest completed run
func (j *IngestJob) LastSummary() interface{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	return j.last
}

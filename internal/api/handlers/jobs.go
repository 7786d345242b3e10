package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/digest"
	"github.com/lifesciencesignals/radar/internal/events"
	"github.com/lifesciencesignals/radar/internal/ingest"
	"github.com/lifesciencesignals/radar/internal/scheduler"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// Websocket keepalive settings
const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// DigestRunner runs the daily digest once
type DigestRunner interface {
	Run(ctx context.Context) (*digest.RunResult, error)
}

// IngestRunner runs RSS ingestion once
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Result, error)
}

// JobStatsProvider reports scheduler statistics
type JobStatsProvider interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler triggers jobs and streams their results
type JobsHandler struct {
	digest   DigestRunner
	ingest   IngestRunner
	stats    JobStatsProvider
	hub      *events.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewJobsHandler creates a new jobs handler. stats and hub may be nil.
func NewJobsHandler(d DigestRunner, i IngestRunner, stats JobStatsProvider, hub *events.Hub, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		digest: d,
		ingest: i,
		stats:  stats,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log,
	}
}

// DigestResponse is the trigger response of the digest endpoint
type DigestResponse struct {
	OK          bool                `json:"ok"`
	Error       string              `json:"error,omitempty"`
	RunID       string              `json:"run_id,omitempty"`
	Sent        int                 `json:"sent"`
	Skipped     int                 `json:"skipped"`
	SkipReasons map[string]int      `json:"skip_reasons,omitempty"`
	Failures    []digest.OrgFailure `json:"failures"`
}

// TriggerDigest runs the digest now
// GET /api/digest
func (h *JobsHandler) TriggerDigest(w http.ResponseWriter, r *http.Request) {
	result, err := h.digest.Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, contracts.ErrRunInProgress) {
			status = http.StatusConflict
		}
		h.logger.WithError(err).Error("Digest trigger failed")
		respondJSON(w, status, DigestResponse{OK: false, Error: err.Error(), Failures: []digest.OrgFailure{}})
		return
	}

	failures := result.Failures
	if failures == nil {
		failures = []digest.OrgFailure{}
	}
	respondJSON(w, http.StatusOK, DigestResponse{
		OK:          true,
		RunID:       result.RunID,
		Sent:        result.Sent,
		Skipped:     result.Skipped,
		SkipReasons: result.SkipReasons,
		Failures:    failures,
	})
}

// TriggerIngest runs RSS ingestion now
// GET /api/ingest/rss
func (h *JobsHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingest.Run(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("RSS ingest trigger failed")
		respondError(w, http.StatusInternalServerError, "Could not load rss_sources")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"message":      result.Message,
		"totalFeeds":   result.TotalFeeds,
		"totalFetched": result.TotalFetched,
		"totalNew":     result.TotalNew,
		"results":      result.Results,
	})
}

// JobsStatus is a liveness endpoint that also reports scheduler stats when
// the scheduler runs in this process
// GET /api/ingest/jobs
func (h *JobsHandler) JobsStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"ok":      true,
		"message": "Jobs ingest endpoint is live.",
	}
	if h.stats != nil {
		body["jobs"] = h.stats.GetJobStats()
	}
	if h.hub != nil {
		body["stream"] = map[string]int{
			"subscribers": h.hub.Subscribers(),
			"dropped":     h.hub.Dropped(),
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// Stream upgrades to a websocket and forwards job result events
// GET /ws/jobs
func (h *JobsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Job stream unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	// Reader: only control frames are expected; a read error ends the stream
	done := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

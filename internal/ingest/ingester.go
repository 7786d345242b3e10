package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lifesciencesignals/radar/internal/contracts"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/httputil"
	"github.com/lifesciencesignals/radar/pkg/logger"
)

// JobName is the scheduler name of the RSS ingestion job
const JobName = "rss_ingest"

// UntitledItem replaces empty item titles
const UntitledItem = "(untitled)"

// DefaultCategory is used when a feed has no category
const DefaultCategory = "rss"

const maxFeedBytes = 10 << 20

// FeedResult is the outcome of one feed
type FeedResult struct {
	Feed     string   `json:"feed"`
	URL      string   `json:"url"`
	Fetched  int      `json:"fetched"`
	Inserted int      `json:"inserted"`
	Errors   []string `json:"errors"`
}

// Result summarizes an ingestion run
type Result struct {
	TotalFeeds   int          `json:"totalFeeds"`
	TotalFetched int          `json:"totalFetched"`
	TotalNew     int          `json:"totalNew"`
	Results      []FeedResult `json:"results"`
	Message      string       `json:"message,omitempty"`
}

// Options tunes ingestion
type Options struct {
	Schedule   string
	MaxPerFeed int
}

// OptionsFromConfig reads ingestion options from config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schedule:   cfg.Ingest.Schedule,
		MaxPerFeed: cfg.Ingest.MaxPerFeed,
	}
}

// Err reports a failure only when every feed failed outright
func (r *Result) Err() error {
	if r == nil || len(r.Results) == 0 || r.TotalFetched > 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Results))
	for _, fr := range r.Results {
		if len(fr.Errors) == 0 {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %s", fr.Feed, strings.Join(fr.Errors, "; ")))
	}
	return errors.Join(errs...)
}

// Ingester pulls enabled feeds into signals
type Ingester struct {
	feeds   contracts.FeedRepository
	signals contracts.SignalRepository
	client  *httputil.Client
	rules   *Rules
	opts    Options
	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time
}

// NewHTTPClient builds the feed fetching client: timeout, user agent and
// per-host throttling from config
func NewHTTPClient(cfg *config.Config, log *logger.Logger) *httputil.Client {
	return httputil.NewWithTimeout(cfg, log, cfg.Ingest.FetchTimeout).
		WithUserAgent(cfg.Ingest.UserAgent).
		WithHostLimiter(httputil.NewHostLimiter(cfg.Ingest.HostRate, cfg.Ingest.HostBurst)).
		WithRetry(1, time.Second)
}

// NewIngester creates an ingester. m may be nil.
func NewIngester(feeds contracts.FeedRepository, signals contracts.SignalRepository, client *httputil.Client, rules *Rules, opts Options, m *metrics.Registry, log *logger.Logger) *Ingester {
	if log == nil {
		log = logger.Nop()
	}
	return &Ingester{
		feeds:   feeds,
		signals: signals,
		client:  client,
		rules:   rules,
		opts:    opts,
		metrics: m,
		logger:  log.WithJob(JobName),
		now:     time.Now,
	}
}

// Name returns the job name
func (i *Ingester) Name() string {
	return JobName
}

// Schedule returns the cron schedule
func (i *Ingester) Schedule() string {
	return i.opts.Schedule
}

// Run ingests every enabled feed. A failing feed is recorded in its
// FeedResult and does not stop the others.
func (i *Ingester) Run(ctx context.Context) (*Result, error) {
	sources, err := i.feeds.EnabledSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rss sources: %w", err)
	}

	result := &Result{TotalFeeds: len(sources), Results: []FeedResult{}}
	if len(sources) == 0 {
		result.Message = "No enabled feeds"
		return result, nil
	}

	if hash, err := i.rules.Hash(); err == nil {
		i.logger.WithFields(map[string]interface{}{
			"feeds":      len(sources),
			"rules_hash": hash[:12],
		}).Info("RSS ingestion started")
	}

	for _, src := range sources {
		fr := i.ingestFeed(ctx, src)
		result.TotalFetched += fr.Fetched
		result.TotalNew += fr.Inserted
		result.Results = append(result.Results, fr)
	}

	i.logger.WithFields(map[string]interface{}{
		"feeds":   result.TotalFeeds,
		"fetched": result.TotalFetched,
		"new":     result.TotalNew,
	}).Info("RSS ingestion completed")

	return result, nil
}

func (i *Ingester) ingestFeed(ctx context.Context, src contracts.FeedSource) FeedResult {
	fr := FeedResult{Feed: src.Name, URL: src.URL, Errors: []string{}}
	log := i.logger.WithField("feed", src.Name)

	entries, err := i.fetch(ctx, src.URL)
	if err != nil {
		log.WithError(err).Warn("Feed fetch failed")
		fr.Errors = append(fr.Errors, err.Error())
		i.metrics.IngestItem("feed_error")
		return fr
	}
	fr.Fetched = len(entries)

	if i.opts.MaxPerFeed > 0 && len(entries) > i.opts.MaxPerFeed {
		entries = entries[:i.opts.MaxPerFeed]
	}

	category := src.Category
	if category == "" {
		category = DefaultCategory
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			fr.Errors = append(fr.Errors, ctx.Err().Error())
			break
		}

		title := e.Title
		if title == "" {
			title = UntitledItem
		}
		occurred := ParseDate(e.Published, i.now())

		isNew, err := i.feeds.InsertItem(ctx, contracts.FeedItem{
			FeedID:      src.ID,
			GUID:        ItemGUID(e, title),
			Title:       title,
			Link:        e.Link,
			PublishedAt: occurred,
		})
		if err != nil {
			fr.Errors = append(fr.Errors, "rss_items: "+err.Error())
			i.metrics.IngestItem("error")
			continue
		}
		if !isNew {
			i.metrics.IngestItem("duplicate")
			continue
		}

		summary := Snippet(e.Content)
		sig := &contracts.Signal{
			Title:         title,
			Type:          i.rules.Classify(title, summary),
			Category:      category,
			OccurredAt:    occurred,
			StrengthScore: i.rules.Score(title, summary),
			SourceURL:     e.Link,
		}
		if err := i.signals.InsertSignal(ctx, sig); err != nil {
			fr.Errors = append(fr.Errors, "signals: "+err.Error())
			i.metrics.IngestItem("error")
			continue
		}

		fr.Inserted++
		i.metrics.IngestItem("inserted")
	}

	log.WithFields(map[string]interface{}{
		"fetched":  fr.Fetched,
		"inserted": fr.Inserted,
		"errors":   len(fr.Errors),
	}).Debug("Feed ingested")

	return fr
}

func (i *Ingester) fetch(ctx context.Context, url string) ([]Entry, error) {
	resp, err := i.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return ParseFeed(data)
}

package commands

import (
	"fmt"

	"github.com/lifesciencesignals/radar/internal/digest"
	"github.com/lifesciencesignals/radar/internal/filters"
	"github.com/lifesciencesignals/radar/internal/ingest"
	"github.com/lifesciencesignals/radar/internal/mail"
	"github.com/lifesciencesignals/radar/internal/metrics"
	"github.com/lifesciencesignals/radar/internal/orgs"
	"github.com/lifesciencesignals/radar/internal/radar"
	"github.com/lifesciencesignals/radar/internal/scheduler"
	"github.com/lifesciencesignals/radar/internal/scheduler/jobs"
	"github.com/lifesciencesignals/radar/internal/store"
	"github.com/lifesciencesignals/radar/pkg/config"
	"github.com/lifesciencesignals/radar/pkg/database"
	"github.com/lifesciencesignals/radar/pkg/logger"
	"github.com/lifesciencesignals/radar/pkg/redis"
)

// app holds every wired component. Commands build the parts they need
// from it and call close when done.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	metrics *metrics.Registry

	orgs       *store.OrgRepository
	filters    *store.FilterRepository
	scores     *store.ScoreRepository
	signals    *store.SignalRepository
	deliveries *store.DeliveryRepository
	feeds      *store.FeedRepository
}

// newApp loads config, connects to Postgres and Redis and creates the
// repositories
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var m *metrics.Registry
	if cfg.MetricsEnabled {
		m = metrics.NewRegistry()
	}

	log.WithFields(map[string]interface{}{
		"env":   cfg.Env,
		"redis": rdb.Enabled(),
		"mail":  cfg.MailEnabled(),
	}).Info("Application initialized")

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      rdb,
		metrics:    m,
		orgs:       store.NewOrgRepository(db.Pool),
		filters:    store.NewFilterRepository(db.Pool),
		scores:     store.NewScoreRepository(db.Pool),
		signals:    store.NewSignalRepository(db.Pool),
		deliveries: store.NewDeliveryRepository(db.Pool),
		feeds:      store.NewFeedRepository(db.Pool),
	}, nil
}

func (a *app) close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

func (a *app) rateLimiter() *redis.RateLimiter {
	return redis.NewRateLimiter(a.redis, "radar")
}

func (a *app) digestJob() *digest.Job {
	stores := digest.Stores{
		Orgs:       a.orgs,
		Filters:    a.filters,
		Scores:     a.scores,
		Signals:    a.signals,
		Deliveries: a.deliveries,
	}
	sender := mail.NewSender(a.cfg, a.rateLimiter(), a.log)
	lock := redis.NewLock(a.redis, "radar")
	return digest.NewJob(stores, sender, lock, digest.OptionsFromConfig(a.cfg), a.metrics, a.log)
}

func (a *app) ingester() (*ingest.Ingester, error) {
	rules, err := ingest.LoadRules(a.cfg.Ingest.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load ingest rules: %w", err)
	}
	client := ingest.NewHTTPClient(a.cfg, a.log)
	return ingest.NewIngester(a.feeds, a.signals, client, rules, ingest.OptionsFromConfig(a.cfg), a.metrics, a.log), nil
}

func (a *app) pipeline() *radar.Pipeline {
	return radar.NewPipeline(a.filters, a.scores, a.metrics, a.log)
}

func (a *app) drilldown() *radar.Drilldown {
	return radar.NewDrilldown(a.signals, radar.NewSignalMemo(a.redis, redis.TTLDrilldown), a.log)
}

func (a *app) explainer() *radar.Explainer {
	return radar.NewExplainer(a.scores, a.log)
}

func (a *app) filterService() *filters.Service {
	return filters.NewService(a.filters, a.log)
}

func (a *app) bootstrapper() *orgs.Bootstrapper {
	return orgs.NewBootstrapper(a.orgs, a.log)
}

// scheduler registers the digest and ingest jobs
func (a *app) scheduler(digestJob *digest.Job, ingester *ingest.Ingester) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, a.metrics)

	if err := sched.AddJob(jobs.NewDigestJob(digestJob)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewIngestJob(ingester)); err != nil {
		return nil, err
	}

	return sched, nil
}

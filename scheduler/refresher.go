package scheduler

import (
	"context"
	"fmt"
	"time"

	"floorwatch/report"
	"floorwatch/services"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Discoverer runs discovery for a set of trackers
type Discoverer interface {
	DiscoverAll(ctx context.Context, trackers []*services.Tracker) []services.Outcome
}

// Refresher periodically re-runs discovery for every tracker so the history
// baseline stays current between on-demand requests.
type Refresher struct {
	cron       *cron.Cron
	schedule   string
	discoverer Discoverer
	trackers   []*services.Tracker
	formatter  *report.Formatter
	timeout    time.Duration
	runOnStart bool
}

func NewRefresher(schedule string, discoverer Discoverer, trackers []*services.Tracker, formatter *report.Formatter, timeout time.Duration, runOnStart bool) *Refresher {
	logger := cronLogger{log.With().Str("component", "refresher").Logger()}
	return &Refresher{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		schedule:   schedule,
		discoverer: discoverer,
		trackers:   trackers,
		formatter:  formatter,
		timeout:    timeout,
		runOnStart: runOnStart,
	}
}

// Start schedules the refresh job. An empty schedule disables the refresher.
func (r *Refresher) Start() error {
	if r.schedule == "" {
		log.Info().Msg("refresh schedule empty, refresher disabled")
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, r.RefreshAll); err != nil {
		return fmt.Errorf("failed to schedule refresher: %w", err)
	}

	if r.runOnStart {
		go r.RefreshAll()
	}

	r.cron.Start()
	log.Info().Str("schedule", r.schedule).Int("trackers", len(r.trackers)).Msg("refresher scheduled")
	return nil
}

// Stop stops scheduling and waits for a running refresh to finish
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RefreshAll runs discovery for every tracker and logs an English summary
func (r *Refresher) RefreshAll() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log.Info().Int("trackers", len(r.trackers)).Msg("starting scheduled refresh")

	succeeded := 0
	for _, o := range r.discoverer.DiscoverAll(ctx, r.trackers) {
		if o.Err != nil {
			log.Warn().Err(o.Err).Str("item", o.Tracker.Key).Msg("scheduled refresh failed")
			continue
		}
		succeeded++
		for _, msg := range r.formatter.Format(o.Result, []string{"en"}) {
			log.Info().Str("item", o.Tracker.Key).Str("request_id", o.Result.RequestID).Msg(msg.Text)
		}
	}

	log.Info().Int("succeeded", succeeded).Int("failed", len(r.trackers)-succeeded).Msg("scheduled refresh completed")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

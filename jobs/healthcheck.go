package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/portico-labs/portico/internal/observability"
	"github.com/portico-labs/portico/internal/webapps"
)

const (
	probeTimeout     = 10 * time.Second
	probeConcurrency = 8
)

// HealthCheckJob probes registered webapp URLs and records the outcome on the
// catalog rows.
type HealthCheckJob struct {
	Repo    webapps.RepositoryPort
	Logger  *slog.Logger
	Metrics *observability.Metrics
	HTTP    *http.Client
	clock   func() time.Time
}

// NewHealthCheckJob wires dependencies for the probe handler.
func NewHealthCheckJob(repo webapps.RepositoryPort, logger *slog.Logger, metrics *observability.Metrics) *HealthCheckJob {
	return &HealthCheckJob{
		Repo:    repo,
		Logger:  logger,
		Metrics: metrics,
		HTTP:    &http.Client{Timeout: probeTimeout},
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes webapp health-check tasks.
func (j *HealthCheckJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("healthcheck: handler not configured")
	}
	var payload HealthCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	targets, err := j.targets(ctx, payload)
	if err != nil {
		j.logger().Error("load healthcheck targets", slog.Any("error", err))
		return err
	}
	if len(targets) == 0 {
		j.logger().Info("no webapps to probe")
		return nil
	}

	start := j.now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for _, app := range targets {
		app := app
		g.Go(func() error {
			return j.probe(ctx, app)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	j.logger().Info("completed webapp probes",
		slog.Int("count", len(targets)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *HealthCheckJob) targets(ctx context.Context, payload HealthCheckPayload) ([]webapps.WebApp, error) {
	if payload.WebAppID > 0 {
		app, err := j.Repo.GetWebApp(ctx, payload.WebAppID)
		if err != nil {
			return nil, err
		}
		return []webapps.WebApp{app}, nil
	}
	return j.Repo.ListWebApps(ctx)
}

// probe marks the app healthy when its URL answers with a status below 500.
// Probe failures are recorded, not returned, so one dead app does not abort
// the run.
func (j *HealthCheckJob) probe(ctx context.Context, app webapps.WebApp) error {
	healthy := j.reachable(ctx, app.URL)
	result := "down"
	if healthy {
		result = "up"
	}
	j.Metrics.RecordHealthCheck(result)
	if err := j.Repo.RecordHealth(ctx, app.ID, healthy, j.now()); err != nil {
		j.logger().Error("record webapp health",
			slog.Int64("webapp_id", app.ID),
			slog.Any("error", err))
		return err
	}
	if !healthy {
		j.logger().Warn("webapp unreachable",
			slog.Int64("webapp_id", app.ID),
			slog.String("url", app.URL))
	}
	return nil
}

func (j *HealthCheckJob) reachable(ctx context.Context, url string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := j.httpClient().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return resp.StatusCode < http.StatusInternalServerError
}

func (j *HealthCheckJob) httpClient() *http.Client {
	if j.HTTP != nil {
		return j.HTTP
	}
	return http.DefaultClient
}

func (j *HealthCheckJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *HealthCheckJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

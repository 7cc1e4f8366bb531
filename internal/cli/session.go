package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	"github.com/randalmurphal/flowchart/pkg/flowchart/config"
	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/observability"
	"github.com/randalmurphal/flowchart/pkg/flowchart/service"
	"github.com/randalmurphal/flowchart/pkg/flowchart/store"
)

// session is one command invocation's view of the configured engine.
type session struct {
	settings    config.Settings
	logger      *slog.Logger
	repo        store.Repository
	checkpoints checkpoint.Store
	registry    *prometheus.Registry
	svc         *service.Service
}

func openSession(ctx context.Context, opts *RootOptions, stderr io.Writer) (*session, error) {
	settings, err := config.LoadSettings(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load settings", err)
	}

	level := settings.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	s := &session{
		settings: settings,
		logger:   observability.NewLogger(level, settings.LogFormat, stderr),
	}

	runOpts, err := s.runOptions()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configure runs", err)
	}

	s.repo, err = store.Open(ctx, settings.Repository.Driver, settings.Repository.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open repository", err)
	}

	svcOpts := []service.Option{
		service.WithLogger(s.logger),
		service.WithRunOptions(runOpts...),
	}
	switch settings.Checkpoint.Store {
	case "memory":
		s.checkpoints = checkpoint.NewMemoryStore()
	case "sqlite":
		cs, err := checkpoint.NewSQLiteStore(settings.Checkpoint.Path)
		if err != nil {
			_ = s.repo.Close()
			return nil, WrapExitError(ExitCommandError, "open checkpoint store", err)
		}
		s.checkpoints = cs
	}
	if s.checkpoints != nil {
		svcOpts = append(svcOpts, service.WithCheckpointStore(s.checkpoints))
	}

	s.svc = service.New(s.repo, svcOpts...)
	return s, nil
}

// runOptions maps settings onto executor options.
func (s *session) runOptions() ([]flowchart.RunOption, error) {
	st := s.settings
	opts := []flowchart.RunOption{
		flowchart.WithMaxSteps(st.MaxSteps),
		flowchart.WithIgnoreBreakpoints(st.IgnoreBreakpoints),
		flowchart.WithEvaluator(expr.New(
			expr.WithMaxDepth(st.EvaluatorMaxDepth),
			expr.WithMaxLength(st.EvaluatorMaxLength),
		)),
		flowchart.WithTracing(st.Tracing),
	}

	switch st.Metrics {
	case "otel":
		opts = append(opts, flowchart.WithMetrics(observability.NewMetricsRecorder()))
	case "prometheus":
		s.registry = prometheus.NewRegistry()
		opts = append(opts, flowchart.WithMetrics(observability.NewPrometheusRecorder(s.registry)))
	}

	if st.Checkpoint.Store != "none" {
		ser, err := checkpoint.ParseSerializer(st.Checkpoint.Encoding())
		if err != nil {
			return nil, err
		}
		opts = append(opts, flowchart.WithCheckpointSerializer(ser))
	}
	return opts, nil
}

// saveFile stores the flowchart read from path under id, replacing any
// stored version.
func (s *session) saveFile(ctx context.Context, id, path string) error {
	payload, err := loadPayload(path)
	if err != nil {
		return err
	}
	_, err = s.svc.Save(ctx, service.SaveRequest{
		FlowchartID: id,
		Name:        id,
		Nodes:       payload.Nodes,
		Edges:       payload.Edges,
	})
	return err
}

// writeMetrics dumps the Prometheus registry in text exposition format.
func (s *session) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if s.registry == nil {
		return fmt.Errorf("--metrics-out needs metrics: prometheus (have %q)", s.settings.Metrics)
	}
	return prometheus.WriteToTextfile(path, s.registry)
}

func (s *session) Close() error {
	var errs []error
	if s.checkpoints != nil {
		errs = append(errs, s.checkpoints.Close())
	}
	errs = append(errs, s.repo.Close())
	return errors.Join(errs...)
}

// Package service is the request boundary of the engine: it stores
// flowcharts, splices nodes into them and executes them.
//
// Every method returns a fully populated response together with an error.
// On failure the response carries ok=false and an error detail with a
// stable code, so transports can forward it verbatim.
//
// Edits are read-modify-write cycles against a versioned repository; a
// cycle that loses a race with another writer is retried with backoff.
// Execution always starts from a freshly hydrated graph, so concurrent
// requests never share mutable state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
	ferrors "github.com/randalmurphal/flowchart/pkg/flowchart/errors"
	"github.com/randalmurphal/flowchart/pkg/flowchart/store"
)

// Service implements Save, InsertNode, Execute and Resume over a repository.
type Service struct {
	repo        store.Repository
	checkpoints checkpoint.Store
	logger      *slog.Logger
	runOpts     []flowchart.RunOption
	editRetry   ferrors.RetryConfig
	storage     *ferrors.Handler
	edits       *ferrors.Handler
	validate    *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithCheckpointStore enables checkpointed pauses and Resume.
func WithCheckpointStore(cs checkpoint.Store) Option {
	return func(s *Service) {
		s.checkpoints = cs
	}
}

// WithLogger sets the logger used by the service and its runs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunOptions adds options applied to every run before request options.
func WithRunOptions(opts ...flowchart.RunOption) Option {
	return func(s *Service) {
		s.runOpts = append(s.runOpts, opts...)
	}
}

// WithRetry sets the policy for edit cycles that lose a version race.
func WithRetry(cfg ferrors.RetryConfig) Option {
	return func(s *Service) {
		s.editRetry = cfg
	}
}

// New creates a Service over repo.
func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		logger:    slog.Default(),
		editRetry: ferrors.ConflictRetry,
		validate:  newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.storage = ferrors.NewHandler(ferrors.WithRetryConfig(ferrors.DefaultRetry), ferrors.WithLogger(s.logger))
	s.edits = ferrors.NewHandler(ferrors.WithRetryConfig(s.editRetry), ferrors.WithLogger(s.logger))
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *Service) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ferrors.ErrInvalidRequest, err)
	}
	return nil
}

// Save validates and stores a flowchart definition.
func (s *Service) Save(ctx context.Context, req SaveRequest) (SaveResponse, error) {
	if err := s.check(req); err != nil {
		return SaveResponse{Error: ferrors.Describe(err)}, err
	}
	payload := flowchart.Payload{Nodes: req.Nodes, Edges: req.Edges}
	if _, err := flowchart.Hydrate(payload, flowchart.WithLintLogger(s.logger)); err != nil {
		return SaveResponse{Error: ferrors.Describe(err)}, err
	}

	var (
		version int64
		err     error
	)
	if req.ExpectedVersion != nil {
		fc := &store.Flowchart{ID: req.FlowchartID, Name: req.Name, Version: *req.ExpectedVersion, Payload: payload}
		version, err = ferrors.ExecuteWithValue(ctx, s.storage, "save", func(ctx context.Context) (int64, error) {
			return s.repo.Save(ctx, fc)
		})
	} else {
		version, err = ferrors.ExecuteWithValue(ctx, s.edits, "save", func(ctx context.Context) (int64, error) {
			current, err := s.currentVersion(ctx, req.FlowchartID)
			if err != nil {
				return 0, err
			}
			return s.repo.Save(ctx, &store.Flowchart{ID: req.FlowchartID, Name: req.Name, Version: current, Payload: payload})
		})
	}
	if err != nil {
		return SaveResponse{Error: ferrors.Describe(err)}, err
	}

	s.logger.Info("flowchart saved",
		slog.String("flowchart_id", req.FlowchartID),
		slog.Int64("version", version),
	)
	return SaveResponse{OK: true, Version: version}, nil
}

func (s *Service) currentVersion(ctx context.Context, id string) (int64, error) {
	fc, err := s.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fc.Version, nil
}

// InsertNode splices req.Node into edge req.EdgeID of a stored flowchart
// and saves the result. A node without an id gets a random one.
func (s *Service) InsertNode(ctx context.Context, req InsertNodeRequest) (InsertNodeResponse, error) {
	if req.Node.ID == "" {
		req.Node.ID = uuid.NewString()
	}
	if err := s.check(req); err != nil {
		return InsertNodeResponse{Error: ferrors.Describe(err)}, err
	}
	rec := req.Node

	type outcome struct {
		node    flowchart.NodeRecord
		version int64
	}
	res, err := ferrors.ExecuteWithValue(ctx, s.edits, "insert node", func(ctx context.Context) (outcome, error) {
		fc, err := s.repo.Get(ctx, req.FlowchartID)
		if err != nil {
			return outcome{}, err
		}
		g, err := flowchart.Hydrate(fc.Payload, flowchart.WithLintLogger(nil))
		if err != nil {
			return outcome{}, err
		}
		inserted, err := g.InsertNodeOnEdge(req.EdgeID, flowchart.Node{ID: rec.ID, Type: flowchart.NodeType(rec.Type), Data: rec.Data})
		if err != nil {
			return outcome{}, err
		}
		fc.Payload = flowchart.Dehydrate(g)
		version, err := s.repo.Save(ctx, fc)
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			node:    flowchart.NodeRecord{ID: inserted.ID, Type: inserted.WireType(), Data: inserted.Data},
			version: version,
		}, nil
	})
	if err != nil {
		return InsertNodeResponse{Error: ferrors.Describe(err)}, err
	}

	s.logger.Info("node inserted",
		slog.String("flowchart_id", req.FlowchartID),
		slog.String("edge_id", req.EdgeID),
		slog.String("node_id", res.node.ID),
		slog.Int64("version", res.version),
	)
	return InsertNodeResponse{OK: true, InsertedNode: &res.node, Version: res.version}, nil
}

// Execute runs a stored flowchart until it finishes, fails or pauses on a
// breakpoint. A pause is resumable through Resume when a checkpoint store
// is configured.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	if err := s.check(req); err != nil {
		return ExecuteResponse{Error: ferrors.Describe(err)}, err
	}
	fc, g, err := s.load(ctx, req.FlowchartID)
	if err != nil {
		return ExecuteResponse{Error: ferrors.Describe(err)}, err
	}

	opts := s.baseRunOptions(fc)
	opts = append(opts, flowchart.WithIgnoreBreakpoints(req.Options.IgnoreBreakpoints))
	if req.Options.MaxSteps > 0 {
		opts = append(opts, flowchart.WithMaxSteps(req.Options.MaxSteps))
	}
	if req.Options.RunID != "" {
		opts = append(opts, flowchart.WithRunID(req.Options.RunID))
	}
	if len(req.Options.Inputs) > 0 {
		opts = append(opts, flowchart.WithInputs(flowchart.NewQueueInputs(req.Options.Inputs)))
	}

	exec := flowchart.NewExecutor(g, opts...)
	err = exec.Run(ctx)
	return executeResponse(exec, err), err
}

// Resume continues a paused run from its latest checkpoint.
func (s *Service) Resume(ctx context.Context, req ResumeRequest) (ExecuteResponse, error) {
	if err := s.check(req); err != nil {
		return ExecuteResponse{Error: ferrors.Describe(err)}, err
	}
	if s.checkpoints == nil {
		err := fmt.Errorf("%w: checkpointing is not configured", ferrors.ErrInvalidRequest)
		return ExecuteResponse{Error: ferrors.Describe(err)}, err
	}
	fc, g, err := s.load(ctx, req.FlowchartID)
	if err != nil {
		return ExecuteResponse{Error: ferrors.Describe(err)}, err
	}

	opts := s.baseRunOptions(fc)
	if len(req.Inputs) > 0 {
		opts = append(opts, flowchart.WithInputs(flowchart.NewQueueInputs(req.Inputs)))
	}
	exec, err := flowchart.ResumeFromCheckpoint(ctx, g, s.checkpoints, req.RunID, opts...)
	if err != nil {
		return ExecuteResponse{RunID: req.RunID, Error: ferrors.Describe(err)}, err
	}
	err = exec.Resume(ctx)
	return executeResponse(exec, err), err
}

// load fetches and hydrates a stored flowchart.
func (s *Service) load(ctx context.Context, id string) (*store.Flowchart, *flowchart.Graph, error) {
	fc, err := ferrors.ExecuteWithValue(ctx, s.storage, "load", func(ctx context.Context) (*store.Flowchart, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, nil, err
	}
	g, err := flowchart.Hydrate(fc.Payload, flowchart.WithLintLogger(s.logger))
	if err != nil {
		return nil, nil, err
	}
	return fc, g, nil
}

func (s *Service) baseRunOptions(fc *store.Flowchart) []flowchart.RunOption {
	name := fc.Name
	if name == "" {
		name = fc.ID
	}
	opts := []flowchart.RunOption{
		flowchart.WithLogger(s.logger.With(slog.String("flowchart_id", fc.ID))),
		flowchart.WithGraphName(name),
	}
	if s.checkpoints != nil {
		opts = append(opts, flowchart.WithCheckpointing(s.checkpoints))
	}
	return append(opts, s.runOpts...)
}

func executeResponse(exec *flowchart.Executor, err error) ExecuteResponse {
	ec := exec.Context()
	resp := ExecuteResponse{
		OK:          err == nil,
		Status:      string(exec.Status()),
		RunID:       exec.RunID(),
		Steps:       exec.Steps(),
		Context:     NewContextView(ec),
		Diagnostics: diagnosticViews(ec.Diagnostics()),
		Error:       ferrors.Describe(err),
	}
	if exec.Status() == flowchart.StatusPaused {
		resp.Current = exec.Current()
	}
	return resp
}

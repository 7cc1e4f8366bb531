package errors

import (
	"context"
	"log/slog"
	"time"
)

// Handler runs operations under a retry policy and logs each retry.
type Handler struct {
	retry       RetryConfig
	logger      *slog.Logger
	onExhausted func(err error)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// NewHandler creates a new error handler with the given options.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		retry:  DefaultRetry,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) HandlerOption {
	return func(h *Handler) {
		h.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithOnExhausted sets a callback for when an operation fails for good.
func WithOnExhausted(fn func(err error)) HandlerOption {
	return func(h *Handler) {
		h.onExhausted = fn
	}
}

// Execute runs fn with retry handling.
func (h *Handler) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := ExecuteWithValue(ctx, h, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteWithValue runs fn with retry handling and returns its value.
// op names the operation in log records.
func ExecuteWithValue[T any](
	ctx context.Context,
	h *Handler,
	op string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	cfg := h.retry
	userHook := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		cat, code := Classify(err)
		h.logger.Warn("retrying operation",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("category", cat.String()),
			slog.String("code", string(code)),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		if userHook != nil {
			userHook(attempt, err, wait)
		}
	}

	result := WithRetryContext(ctx, cfg, fn)
	if result.Err != nil && h.onExhausted != nil {
		h.onExhausted(result.Err)
	}
	return result.Value, result.Err
}

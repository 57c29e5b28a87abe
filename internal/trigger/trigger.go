// Package trigger reacts to stored message changes. Handlers never fail the caller:
// problems are logged and reported in the Result.
package trigger

import (
	"context"

	"campusmart/internal/domain/entity"
	"campusmart/internal/infrastructure/metrics"
	"campusmart/pkg/logger"
)

type Result struct {
	Success bool
	Skipped bool
	Err     error
}

func (r Result) outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Success:
		return "success"
	default:
		return "failure"
	}
}

type Handler interface {
	Name() string
	Handle(ctx context.Context, change entity.MessageChange) Result
}

// Source delivers message changes until ctx is done. Both the Firestore listener and
// the in-memory store implement it.
type Source interface {
	Watch(ctx context.Context, fn func(entity.MessageChange)) error
}

type Runner struct {
	source   Source
	handlers []Handler
}

func NewRunner(source Source, handlers ...Handler) *Runner {
	return &Runner{source: source, handlers: handlers}
}

// Run feeds every change to every handler until ctx is done or the source fails.
func (r *Runner) Run(ctx context.Context) error {
	logger.Info("Trigger runner started with %d handlers", len(r.handlers))
	return r.source.Watch(ctx, func(change entity.MessageChange) {
		r.Dispatch(ctx, change)
	})
}

func (r *Runner) Dispatch(ctx context.Context, change entity.MessageChange) []Result {
	results := make([]Result, 0, len(r.handlers))
	for _, h := range r.handlers {
		res := h.Handle(ctx, change)
		metrics.TriggerRuns.WithLabelValues(h.Name(), res.outcome()).Inc()
		results = append(results, res)
	}
	return results
}

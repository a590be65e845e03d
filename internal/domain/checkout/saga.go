package checkout

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// step is one forward action of a checkout run. undo, when set, reverses a
// successful run and is only invoked after run returned nil.
type step struct {
	stage Stage
	run   func(ctx context.Context) error
	undo  func(ctx context.Context) error
}

type saga struct {
	tracer  trace.Tracer
	metrics *metrics
	done    []step
}

func newSaga(tracer trace.Tracer, m *metrics) *saga {
	return &saga{tracer: tracer, metrics: m}
}

// execute runs steps in order. The first failure compensates every completed
// step in reverse and is returned as a *FailureError naming its stage.
// Compensation errors are logged and never replace the forward error.
func (s *saga) execute(ctx context.Context, steps ...step) error {
	for _, st := range steps {
		if err := s.run(ctx, st); err != nil {
			s.compensate(ctx, st.stage, err)
			return &FailureError{Stage: st.stage, Err: err}
		}
		s.done = append(s.done, st)
	}
	return nil
}

func (s *saga) run(ctx context.Context, st step) error {
	ctx, span := s.tracer.Start(ctx, "checkout."+string(st.stage))
	defer span.End()

	if err := st.run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return err
	}
	return nil
}

func (s *saga) compensate(ctx context.Context, failed Stage, cause error) {
	lg := zctx.From(ctx)
	for i := len(s.done) - 1; i >= 0; i-- {
		st := s.done[i]
		if st.undo == nil {
			continue
		}
		if err := st.undo(ctx); err != nil {
			lg.Error("Compensation failed",
				zap.String("step", string(st.stage)),
				zap.String("failed_step", string(failed)),
				zap.NamedError("cause", cause),
				zap.Error(err),
			)
			s.metrics.compensation(ctx, false)
			continue
		}
		lg.Info("Compensated",
			zap.String("step", string(st.stage)),
			zap.String("failed_step", string(failed)),
		)
		s.metrics.compensation(ctx, true)
	}
	s.done = nil
}

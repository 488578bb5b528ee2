package export

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/model"
)

// Multi writes to a primary sink first, then to the extra sinks in the
// order given. Only the primary's error is returned; extra sink failures
// are logged.
type Multi struct {
	primary Sink
	extras  []Sink
}

// NewMulti creates a fan-out sink. Nil extras are ignored.
func NewMulti(primary Sink, extras ...Sink) *Multi {
	m := &Multi{primary: primary}
	for _, s := range extras {
		if s != nil {
			m.extras = append(m.extras, s)
		}
	}
	return m
}

// Write implements Sink.
func (m *Multi) Write(ctx context.Context, ranked, relevant []model.Candidate) error {
	primaryErr := m.primary.Write(ctx, ranked, relevant)
	if primaryErr != nil && !IsPartial(primaryErr) {
		return primaryErr
	}

	for _, s := range m.extras {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Write(ctx, ranked, relevant); err != nil {
			zap.L().Warn("export: secondary sink failed", zap.Error(err))
		}
	}

	return primaryErr
}

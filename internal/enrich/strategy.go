package enrich

import (
	"context"

	"github.com/rs/zerolog"
)

// Strategy is one self-contained extraction path within a fallback chain.
// Run returns the extracted value and whether the strategy produced a usable
// result. A false second return with a nil error means expected absence; an
// error marks a transient failure worth logging before moving on.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, bool, error)
}

// firstSuccess runs the strategies in order and returns the first usable
// result. Failures and absences are logged at debug level and never stop the
// chain; when every strategy comes up empty the zero value and false are
// returned.
func firstSuccess[T any](ctx context.Context, logger zerolog.Logger, strategies ...Strategy[T]) (T, bool) {
	for _, s := range strategies {
		value, ok, err := s.Run(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("strategy", s.Name).Msg("strategy failed, trying next")
			continue
		}
		if !ok {
			logger.Debug().Str("strategy", s.Name).Msg("strategy found nothing, trying next")
			continue
		}
		return value, true
	}

	var zero T
	return zero, false
}

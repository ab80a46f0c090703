package check

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/metrics-pfsense/internal/output"
	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
)

// Source fetches the stats document.
type Source interface {
	SystemStats(ctx context.Context) (*stats.Object, error)
}

// Runner polls Source once, flattens the result and writes it to Out.
type Runner struct {
	Source    Source
	Flattener *stats.Flattener
	Writer    output.Writer
	Out       io.Writer
	Now       func() time.Time
}

// Run performs a single poll. Request or parse failures are returned as
// Critical and nothing is written.
func (r *Runner) Run(ctx context.Context) error {
	obj, err := r.Source.SystemStats(ctx)
	if err != nil {
		return Criticalf(err, "query system_stats")
	}

	metrics := r.Flattener.Flatten(obj)
	log.Debug().
		Int("stats", obj.Len()).
		Int("metrics", len(metrics)).
		Str("format", r.Writer.Name()).
		Msg("Flattened system stats")

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if err := r.Writer.Write(r.Out, metrics, now()); err != nil {
		return Unknownf(err, "write metrics")
	}
	return nil
}

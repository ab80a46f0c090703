package output

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
)

// Prometheus writes numeric metrics in the text exposition format, one
// gauge per metric. Values that do not parse as numbers are skipped.
type Prometheus struct{}

func (Prometheus) Name() string { return "prometheus" }

func (Prometheus) Write(w io.Writer, metrics []stats.Metric, _ time.Time) error {
	reg := prometheus.NewRegistry()
	for _, m := range metrics {
		v, ok := numeric(m.Value)
		if !ok {
			log.Debug().Str("metric", m.Name).Str("value", m.Value.String()).Msg("Skipping non-numeric metric")
			continue
		}
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricName(m.Name),
			Help: "pfSense statistic " + m.Name,
		})
		if err := reg.Register(g); err != nil {
			log.Warn().Err(err).Str("metric", m.Name).Msg("Skipping duplicate metric")
			continue
		}
		g.Set(v)
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func numeric(v stats.Value) (float64, bool) {
	switch t := v.(type) {
	case stats.Number:
		f, err := t.Float()
		return f, err == nil
	case stats.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f, err == nil
	case stats.Bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// MetricName maps a dot-delimited path onto the Prometheus name charset.
func MetricName(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 1)
	for i, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

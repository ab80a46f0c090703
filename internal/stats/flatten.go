// Package stats turns the FauxAPI system_stats document into flat,
// dot-delimited metrics.
package stats

// LoadAverageKey is the stats entry reported as a positional array.
const LoadAverageKey = "load_average"

// LoadAverageLabels name the positions of the load_average array.
var LoadAverageLabels = [...]string{"1min", "5min", "15min"}

// Metric is one flattened statistic. Timestamps are attached by the
// output writer.
type Metric struct {
	Name  string
	Value Value
}

// Flattener prefixes every metric with Scheme.
type Flattener struct {
	Scheme string
}

// NewFlattener returns a Flattener for the given scheme prefix.
func NewFlattener(scheme string) *Flattener {
	return &Flattener{Scheme: scheme}
}

// Flatten walks the members of stats in document order. load_average
// arrays yield up to three metrics; every other member yields one metric
// unless its string form is empty.
func (f *Flattener) Flatten(stats *Object) []Metric {
	if stats == nil {
		return nil
	}
	metrics := make([]Metric, 0, stats.Len()+len(LoadAverageLabels))
	for _, m := range stats.Members {
		if m.Key == LoadAverageKey {
			if arr, ok := m.Value.(Array); ok {
				metrics = append(metrics, f.loadAverage(arr)...)
				continue
			}
		}
		if m.Value.String() == "" {
			continue
		}
		metrics = append(metrics, Metric{Name: f.name(m.Key), Value: m.Value})
	}
	return metrics
}

func (f *Flattener) loadAverage(arr Array) []Metric {
	var out []Metric
	for i, label := range LoadAverageLabels {
		if i >= len(arr) {
			break
		}
		if _, missing := arr[i].(Null); missing {
			continue
		}
		out = append(out, Metric{Name: f.name(LoadAverageKey, label), Value: arr[i]})
	}
	return out
}

func (f *Flattener) name(parts ...string) string {
	n := f.Scheme
	for _, p := range parts {
		if n == "" {
			n = p
			continue
		}
		n += "." + p
	}
	return n
}

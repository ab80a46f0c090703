// Package output renders flattened stats for the monitoring pipeline.
package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
)

// Writer renders metrics to w. now is the collection time.
type Writer interface {
	Name() string
	Write(w io.Writer, metrics []stats.Metric, now time.Time) error
}

type Registry struct {
	writers map[string]Writer
}

func NewRegistry() *Registry {
	return &Registry{writers: map[string]Writer{}}
}

// DefaultRegistry holds every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Graphite{})
	r.Register(Prometheus{})
	return r
}

func (r *Registry) Register(w Writer) {
	r.writers[w.Name()] = w
}

func (r *Registry) Get(name string) (Writer, error) {
	w, ok := r.writers[name]
	if !ok {
		return nil, fmt.Errorf("output format not registered: %s", name)
	}
	return w, nil
}

// Names lists the registered formats in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.writers))
	for n := range r.writers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/3cpo-dev/metrics-pfsense/internal/stats"
)

// lineBreaks would split one metric across plaintext lines.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Graphite writes the plaintext protocol: "name value timestamp" per line.
type Graphite struct{}

func (Graphite) Name() string { return "graphite" }

func (Graphite) Write(w io.Writer, metrics []stats.Metric, now time.Time) error {
	bw := bufio.NewWriter(w)
	ts := strconv.FormatInt(now.Unix(), 10)
	for _, m := range metrics {
		lineBreaks.WriteString(bw, m.Name)
		bw.WriteByte(' ')
		lineBreaks.WriteString(bw, m.Value.String())
		bw.WriteByte(' ')
		bw.WriteString(ts)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

// Summary gathers every counter of the given gatherer whose name starts with
// prefix and flattens it to "name{label=value,...}" → value.
// Series with a zero value are skipped.
func Summary(g prometheus.Gatherer, prefix string) (map[string]float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range mfs {
		if mf.GetType() != dto.MetricType_COUNTER || !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			out[seriesName(mf.GetName(), m.GetLabel())] = v
		}
	}
	return out, nil
}

func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, 0, len(labels))
	for _, lp := range labels {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

// LogSummary writes the counters collected during the run at debug level.
func LogSummary(logger zerolog.Logger) {
	summary, err := Summary(prometheus.DefaultGatherer, "tubesubs_")
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to gather metrics")
		return
	}

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	dict := zerolog.Dict()
	for _, name := range names {
		dict = dict.Float64(name, summary[name])
	}
	logger.Debug().Dict("counters", dict).Msg("Run metrics")
}

package application

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesAnalyzed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threat_engine_messages_analyzed_total",
		Help: "Messages run through the detection pipeline",
	})
	verdictsByCategory = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_engine_verdicts_total",
		Help: "Verdicts produced, by category",
	}, []string{"category"})
	layerSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threat_engine_layer_skips_total",
		Help: "Layer results that were skipped, by layer",
	}, []string{"layer"})
)

func init() {
	prometheus.MustRegister(messagesAnalyzed, verdictsByCategory, layerSkips)
}

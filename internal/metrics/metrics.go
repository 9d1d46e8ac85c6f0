// Package metrics exposes Prometheus counters for tool calls and spend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_tool_calls_total",
			Help: "Total number of MCP tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	EstimatedSpendUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_estimated_spend_usd_total",
			Help: "Estimated USD spent on generation by resource kind",
		},
		[]string{"kind"},
	)

	GeneratedAssets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_generated_assets_total",
			Help: "Number of generated images, videos and content pieces",
		},
		[]string{"kind"},
	)

	ValidationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentgen_platform_validations_total",
			Help: "Platform content validations by platform and result",
		},
		[]string{"platform", "valid"},
	)
)

func ObserveTool(tool string, ok bool) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	ToolCalls.WithLabelValues(tool, outcome).Inc()
}

// ObserveSpend records generated units and their estimated cost. Negative
// costs are ignored since counters cannot decrease.
func ObserveSpend(kind string, units int, usd float64) {
	if units > 0 {
		GeneratedAssets.WithLabelValues(kind).Add(float64(units))
	}
	if usd > 0 {
		EstimatedSpendUSD.WithLabelValues(kind).Add(usd)
	}
}

func ObserveValidation(platform string, valid bool) {
	v := "false"
	if valid {
		v = "true"
	}
	ValidationResults.WithLabelValues(platform, v).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"cardkey-service/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(cardsByStatus) }

var cardsByStatus = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cards_by_status",
		Help: "Current number of cards by status.",
	},
	[]string{"status"}, // 'unused', 'used', 'disabled'
)

func SetCardsByStatus(c model.CardCounts) {
	cardsByStatus.WithLabelValues(model.CardStatusUnused.String()).Set(float64(c.Unused))
	cardsByStatus.WithLabelValues(model.CardStatusUsed.String()).Set(float64(c.Used))
	cardsByStatus.WithLabelValues(model.CardStatusDisabled.String()).Set(float64(c.Disabled))
}

// Package metrics define las métricas Prometheus del servicio. Viven en un
// paquete propio para evitar ciclos de import entre las capas que las emiten
// y la capa HTTP que las expone.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "Latencia de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"method", "path", "status"})

	PasscodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passcodes_issued_total",
		Help: "Passcodes emitidos, por canal y flujo",
	}, []string{"channel", "flow"})

	PasscodeVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passcode_verifications_total",
		Help: "Verificaciones de passcode, por resultado",
	}, []string{"result"})

	ReconcileDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_decisions_total",
		Help: "Decisiones de reconciliación, por tipo",
	}, []string{"decision"})

	DeliveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passcode_delivery_failures_total",
		Help: "Fallos de entrega de passcode, por canal",
	}, []string{"channel"})
)

// Register registra todas las métricas en el registry dado (o el default si
// es nil). Tolera registros duplicados para facilitar los tests.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		HTTPRequestDuration,
		PasscodesIssued,
		PasscodeVerifications,
		ReconcileDecisions,
		DeliveryFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

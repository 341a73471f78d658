package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentCreateTotal counts payment creation attempts by currency and outcome.
	PaymentCreateTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound provider webhook outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// NotificationDeliveryTotal counts Telegram confirmation delivery outcomes.
	NotificationDeliveryTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentCreateTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_create_total",
			Help:      "Count of payment creation outcomes.",
		}, []string{"currency", "result"}))
		PaymentWebhookTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed provider webhooks by outcome.",
		}, []string{"result"}))
		NotificationDeliveryTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_delivery_total",
			Help:      "Count of confirmation delivery outcomes.",
		}, []string{"result"}))
	})
}

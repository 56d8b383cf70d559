package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scottbot/internal/eventbus"
)

// Metrics groups all Prometheus instruments used by the bot. Each instance
// owns its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Messages         *prometheus.CounterVec
	ProviderAttempts *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	Failovers        *prometheus.CounterVec
	Rewrites         prometheus.Counter
	Commands         *prometheus.CounterVec
	Reminders        *prometheus.CounterVec
	Errors           *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages by direction and channel.",
		}, []string{"direction", "channel"}),
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Completion attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Completion latency by provider.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider"}),
		Failovers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failovers_total",
			Help:      "Switches from one provider to the other.",
		}, []string{"from", "to"}),
		Rewrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_rewrites_total",
			Help:      "Over-long responses sent back for a shorter rewrite.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands by name and outcome.",
		}, []string{"command", "outcome"}),
		Reminders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder lifecycle events.",
		}, []string{"event"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component.",
		}, []string{"component"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Attach subscribes the instruments to bus events.
func (m *Metrics) Attach(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicInboundMessage, func(e eventbus.Event) {
		if ev, ok := e.Payload.(eventbus.MessageEvent); ok {
			m.Messages.WithLabelValues("inbound", ev.Channel).Inc()
		}
	})
	bus.Subscribe(eventbus.TopicOutboundMessage, func(e eventbus.Event) {
		if ev, ok := e.Payload.(eventbus.MessageEvent); ok {
			m.Messages.WithLabelValues("outbound", ev.Channel).Inc()
		}
	})
	bus.Subscribe(eventbus.TopicProviderAttempt, func(e eventbus.Event) {
		ev, ok := e.Payload.(eventbus.AttemptEvent)
		if !ok {
			return
		}
		outcome := "success"
		if ev.Err != nil {
			outcome = ev.ErrorType
		}
		m.ProviderAttempts.WithLabelValues(ev.Provider, outcome).Inc()
		m.ProviderLatency.WithLabelValues(ev.Provider).Observe(ev.Duration.Seconds())
	})
	bus.Subscribe(eventbus.TopicFailover, func(e eventbus.Event) {
		if ev, ok := e.Payload.(eventbus.FailoverEvent); ok {
			m.Failovers.WithLabelValues(ev.From, ev.To).Inc()
		}
	})
	bus.Subscribe(eventbus.TopicResponseRewrite, func(eventbus.Event) {
		m.Rewrites.Inc()
	})
	bus.Subscribe(eventbus.TopicCommand, func(e eventbus.Event) {
		if ev, ok := e.Payload.(eventbus.CommandEvent); ok {
			m.Commands.WithLabelValues(ev.Name, ev.Outcome).Inc()
		}
	})
	for topic, label := range map[eventbus.Topic]string{
		eventbus.TopicReminderCreated:  "created",
		eventbus.TopicReminderRejected: "rejected",
		eventbus.TopicReminderSent:     "sent",
		eventbus.TopicReminderFailed:   "failed",
	} {
		label := label
		bus.Subscribe(topic, func(eventbus.Event) {
			m.Reminders.WithLabelValues(label).Inc()
		})
	}
	bus.Subscribe(eventbus.TopicError, func(e eventbus.Event) {
		if ev, ok := e.Payload.(eventbus.ErrorEvent); ok {
			m.Errors.WithLabelValues(ev.Component).Inc()
		}
	})
}

// Package metrics holds the prometheus collectors for the chat core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "murmur"

// Chat counts what happens on a session's send and receive paths.
type Chat struct {
	MessagesSent     prometheus.Counter
	SendFailures     prometheus.Counter
	MessagesReceived *prometheus.CounterVec // by message variant
	FetchRetries     prometheus.Counter
	EntriesAbandoned prometheus.Counter
	DecodeFailures   prometheus.Counter
}

// NewChat creates the chat collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests and the
// metrics-disabled CLI use.
func NewChat(reg prometheus.Registerer) *Chat {
	c := &Chat{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages written to the shared document.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Messages that could not be written.",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Remote messages resolved from the live stream.",
		}, []string{"kind"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_fetch_retries_total",
			Help:      "Blob fetches retried while content was still propagating.",
		}),
		EntriesAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_abandoned_total",
			Help:      "Remote entries dropped after the retry bound was exhausted.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Remote entries skipped because their bytes were not a message.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.MessagesSent,
			c.SendFailures,
			c.MessagesReceived,
			c.FetchRetries,
			c.EntriesAbandoned,
			c.DecodeFailures,
		)
	}

	return c
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

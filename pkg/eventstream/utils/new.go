// Package eventstreamutils builds an eventstream.Publisher from configuration.
package eventstreamutils

import (
	"fmt"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
	"github.com/danielpid/dynamic-rag/pkg/eventstream/kafka"
	"github.com/danielpid/dynamic-rag/pkg/eventstream/nats"
	"github.com/danielpid/dynamic-rag/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// ProviderType is "", "none", "kafka" or "nats".
	ProviderType string

	// Brokers are Kafka bootstrap addresses.
	Brokers []string

	// URL is the NATS server URL.
	URL string

	// Topic is the Kafka topic or NATS subject.
	Topic string
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "none", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic})
	case "nats":
		return nats.NewPublisher(nats.Config{URL: o.URL, Subject: o.Topic})
	default:
		return nil, fmt.Errorf("unsupported event stream provider: %s", o.ProviderType)
	}
}

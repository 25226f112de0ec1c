package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
	"github.com/danielpid/dynamic-rag/pkg/eventstream/kafka"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var w *fakeWriter

	BeforeEach(func() {
		w = &fakeWriter{}
	})

	It("requires brokers and a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(HaveOccurred())
		_, err = kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(HaveOccurred())
	})

	It("writes the event as a keyed JSON message", func() {
		p := kafka.NewPublisherWithWriter(w)
		event := eventstream.NewIngestionEvent(
			eventstream.EventSource{Bucket: "data", Key: "stories.txt"},
			eventstream.IngestionRun{Status: "done", RecordsIngested: 3},
		)
		Expect(p.PublishIngestion(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("data/stories.txt"))

		var got eventstream.IngestionEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal(event.EventID))
		Expect(got.Run.RecordsIngested).To(Equal(3))
	})

	It("rejects nil events", func() {
		p := kafka.NewPublisherWithWriter(w)
		Expect(p.PublishIngestion(context.Background(), nil)).To(MatchError(eventstream.ErrNilIngestionEvent))
	})

	It("wraps write failures", func() {
		w.err = errors.New("leader not available")
		p := kafka.NewPublisherWithWriter(w)
		err := p.PublishIngestion(context.Background(), eventstream.NewIngestionEvent(eventstream.EventSource{}, eventstream.IngestionRun{}))
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
	})

	It("closes the writer", func() {
		Expect(kafka.NewPublisherWithWriter(w).Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})

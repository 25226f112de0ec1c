package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals IngestionEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NewIngestionEvent(
			eventstream.EventSource{Bucket: "data", Key: "stories.txt"},
			eventstream.IngestionRun{
				Status:          "done",
				Documents:       1,
				Chunks:          12,
				RecordsIngested: 12,
				StartedAt:       now.Add(-2 * time.Second),
				CompletedAt:     now,
				DurationMs:      2000,
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeIngestionCompleted))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("run"))
		Expect(got["run"]).NotTo(HaveKey("error"))
	})

	It("assigns unique event IDs", func() {
		a := eventstream.NewIngestionEvent(eventstream.EventSource{}, eventstream.IngestionRun{})
		b := eventstream.NewIngestionEvent(eventstream.EventSource{}, eventstream.IngestionRun{})
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
	})

	It("provides ErrNilIngestionEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilIngestionEvent).To(MatchError("nil ingestion event"))
	})
})

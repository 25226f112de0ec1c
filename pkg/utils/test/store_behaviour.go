package testutils

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

// ItBehavesLikeAVectorStore declares the behaviour every vector.Store backend
// shares. newStore must return an empty, uninitialized store; it is closed
// after each spec.
func ItBehavesLikeAVectorStore(newStore func() vector.Store) {
	var (
		ctx   context.Context
		store vector.Store
	)

	params := vector.IndexParams{Dimensions: 4}

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()
		Expect(store.Initialize(ctx, params)).To(Succeed())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	record := func(nodeID string, emb ...float32) vector.Record {
		return vector.Record{
			NodeID:    nodeID,
			Text:      "text of " + nodeID,
			Metadata:  map[string]any{"source": "bucket/stories.txt"},
			Embedding: emb,
		}
	}

	It("is idempotent to initialize", func() {
		Expect(store.Initialize(ctx, params)).To(Succeed())
	})

	It("rejects re-initializing with another dimension", func() {
		Expect(store.Insert(ctx, []vector.Record{record("a", 1, 0, 0, 0)})).To(Succeed())
		err := store.Initialize(ctx, vector.IndexParams{Dimensions: 8})
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})

	It("rejects metrics other than cosine", func() {
		err := store.Initialize(ctx, vector.IndexParams{Dimensions: 4, Metric: "l2"})
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})

	It("returns an empty slice when the index is empty", func() {
		results, err := store.Search(ctx, []float32{1, 0, 0, 0}, vector.SearchParams{TopK: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("ranks results by descending cosine similarity", func() {
		Expect(store.Insert(ctx, []vector.Record{
			record("far", 0, 0, 1, 0),
			record("near", 1, 0.1, 0, 0),
			record("mid", 1, 1, 0, 0),
		})).To(Succeed())

		results, err := store.Search(ctx, []float32{1, 0, 0, 0}, vector.SearchParams{TopK: 3, EfSearch: 40})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		Expect(results[0].NodeID).To(Equal("near"))
		Expect(results[0].Text).To(Equal("text of near"))
		Expect(results[0].Metadata).To(HaveKeyWithValue("source", "bucket/stories.txt"))
		Expect(results[1].NodeID).To(Equal("mid"))
		Expect(results[2].NodeID).To(Equal("far"))
		Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		Expect(results[1].Score).To(BeNumerically(">", results[2].Score))
		Expect(results[0].Score).To(BeNumerically("~", 0.995, 0.01))
	})

	It("returns fewer than TopK results when the index is small", func() {
		Expect(store.Insert(ctx, []vector.Record{record("only", 0, 1, 0, 0)})).To(Succeed())

		results, err := store.Search(ctx, []float32{0, 1, 0, 0}, vector.SearchParams{TopK: 5})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})

	It("appends on every insert", func() {
		batch := []vector.Record{record("a", 1, 0, 0, 0), record("b", 0, 1, 0, 0)}
		Expect(store.Insert(ctx, batch)).To(Succeed())
		Expect(store.Insert(ctx, batch)).To(Succeed())

		n, err := store.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(4))
	})

	It("rejects records with the wrong dimension", func() {
		err := store.Insert(ctx, []vector.Record{record("bad", 1, 0)})
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))

		n, err := store.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("counts zero before it is initialized", func() {
		fresh := newStore()
		defer fresh.Close()

		n, err := fresh.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("serves searches and inserts while being re-initialized", func() {
		Expect(store.Insert(ctx, []vector.Record{record("a", 1, 0, 0, 0)})).To(Succeed())

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(3)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(store.Initialize(ctx, params)).To(Succeed())
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := store.Search(ctx, []float32{1, 0, 0, 0}, vector.SearchParams{TopK: 1})
				Expect(err).NotTo(HaveOccurred())
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				Expect(store.Insert(ctx, []vector.Record{record("b", 0, 1, 0, 0)})).To(Succeed())
			}()
		}
		wg.Wait()

		n, err := store.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(5))
	})

	It("rejects a query with the wrong dimension", func() {
		_, err := store.Search(ctx, []float32{1, 0}, vector.SearchParams{})
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})
}

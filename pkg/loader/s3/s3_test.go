package s3_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
	s3loader "github.com/danielpid/dynamic-rag/pkg/loader/s3"
	"github.com/danielpid/dynamic-rag/pkg/logger"
)

// fakeS3 serves objects from a map and pages listings two keys at a time.
type fakeS3 struct {
	objects map[string]string
	getErr  error
	listErr error
	gets    int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func collect(l loader.Loader, ref loader.Ref) ([]loader.Document, error) {
	var docs []loader.Document
	for doc, err := range l.Load(context.Background(), ref) {
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var _ = Describe("Loader", func() {
	var (
		api *fakeS3
		l   *s3loader.Loader
	)

	BeforeEach(func() {
		api = &fakeS3{objects: map[string]string{
			"stories.txt": "Lira lived by the sea.",
			"tales/":      "",
			"tales/a.txt": "a",
			"tales/b.txt": "b",
			"tales/c.txt": "c",
			"tales/d.txt": "d",
			"tales/e.txt": "e",
			"other/x.txt": "x",
		}}
		l = s3loader.New(api, logger.Nop())
	})

	It("loads a single object", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "stories.txt"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Text).To(Equal("Lira lived by the sea."))
		Expect(docs[0].Name).To(Equal("stories.txt"))
	})

	It("walks every page of a prefix and skips folder markers", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "tales/"})
		Expect(err).NotTo(HaveOccurred())
		keys := make([]string, len(docs))
		for i, d := range docs {
			keys[i] = d.Ref.Key
		}
		Expect(keys).To(Equal([]string{"tales/a.txt", "tales/b.txt", "tales/c.txt", "tales/d.txt", "tales/e.txt"}))
	})

	It("is lazy", func() {
		for range l.Load(context.Background(), loader.Ref{Bucket: "data", Key: "tales/"}) {
			break
		}
		Expect(api.gets).To(Equal(1))
	})

	It("yields nothing for an empty prefix", func() {
		docs, err := collect(l, loader.Ref{Bucket: "data", Key: "nothing/"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(BeEmpty())
	})

	It("maps a missing key to source not found", func() {
		_, err := collect(l, loader.Ref{Bucket: "data", Key: "missing.txt"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceNotFound))
		var nsk *types.NoSuchKey
		Expect(errors.As(err, &nsk)).To(BeTrue())
	})

	It("maps a missing bucket to source not found", func() {
		api.listErr = &types.NoSuchBucket{}
		_, err := collect(l, loader.Ref{Bucket: "gone"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceNotFound))
	})

	It("maps access denied to a configuration error", func() {
		api.getErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
		_, err := collect(l, loader.Ref{Bucket: "data", Key: "stories.txt"})
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})

	It("maps other failures to source unavailable", func() {
		api.getErr = errors.New("connection reset by peer")
		_, err := collect(l, loader.Ref{Bucket: "data", Key: "stories.txt"})
		Expect(fault.KindOf(err)).To(Equal(fault.SourceUnavailable))
		Expect(fault.Retryable(err)).To(BeTrue())
	})
})

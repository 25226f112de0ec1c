// Package qdrant provides a Qdrant vector store over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/vector"
)

const (
	// DefaultAddr is the default Qdrant gRPC address.
	DefaultAddr = "localhost:6334"

	// DefaultCollection is the default collection name.
	DefaultCollection = "stories"
)

// payload keys
const (
	keyNodeID = "node_id"
	keyText   = "text"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// Addr is the gRPC address, e.g. "localhost:6334".
	Addr string

	// Collection is the collection name. Defaults to DefaultCollection.
	Collection string
}

// Store implements vector.Store on Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	index       vector.Index
	logger      *slog.Logger
}

// NewStore creates a Store. The gRPC connection is established lazily.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	addr := c.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fault.New(fault.Configuration, "qdrant.connect", fmt.Errorf("dial qdrant %s: %w", addr, err))
	}

	logger.Info("qdrant store configured",
		"addr", addr,
		"collection", collection,
	)

	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger,
	}, nil
}

// Initialize creates the collection when it does not exist and checks the
// vector size of an existing one.
func (s *Store) Initialize(ctx context.Context, params vector.IndexParams) error {
	const op = "qdrant.initialize"

	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return err
	}

	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return classify(op, fmt.Errorf("list collections: %w", err))
	}

	exists := false
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			exists = true
			break
		}
	}

	if exists {
		info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
		if err != nil {
			return classify(op, fmt.Errorf("get collection %s: %w", s.collection, err))
		}
		size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != 0 && size != uint64(params.Dimensions) {
			return vector.DimensionMismatch(op, uint(size), int(params.Dimensions))
		}
	} else {
		m := uint64(params.M)
		ef := uint64(params.EfConstruction)
		_, err = s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(params.Dimensions),
						Distance: pb.Distance_Cosine,
					},
				},
			},
			HnswConfig: &pb.HnswConfigDiff{
				M:           &m,
				EfConstruct: &ef,
			},
		})
		if err != nil {
			return classify(op, fmt.Errorf("create collection %s: %w", s.collection, err))
		}
	}

	s.index.Set(params)

	s.logger.Debug("qdrant collection ready",
		"collection", s.collection,
		"created", !exists,
		"dimensions", params.Dimensions,
	)
	return nil
}

// Insert stores records as new points with random UUIDs.
func (s *Store) Insert(ctx context.Context, records []vector.Record) error {
	const op = "qdrant.insert"

	index, err := s.index.Params()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := vector.CheckDimensions(op, index.Dimensions, records); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := toPayload(r.Metadata)
		payload[keyNodeID] = stringValue(r.NodeID)
		payload[keyText] = stringValue(r.Text)

		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uuid.NewString()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return classify(op, fmt.Errorf("upsert %d points: %w", len(records), err))
	}

	s.logger.Debug("inserted points into qdrant",
		"count", len(records),
	)
	return nil
}

// Search performs a cosine k-NN search with the given hnsw_ef.
func (s *Store) Search(ctx context.Context, embedding []float32, params vector.SearchParams) ([]vector.Result, error) {
	const op = "qdrant.search"

	index, err := s.index.Params()
	if err != nil {
		return nil, err
	}
	if len(embedding) != int(index.Dimensions) {
		return nil, vector.DimensionMismatch(op, index.Dimensions, len(embedding))
	}
	params = params.WithDefaults(index)

	ef := uint64(params.EfSearch)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(params.TopK),
		Params:         &pb.SearchParams{HnswEf: &ef},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classify(op, fmt.Errorf("search: %w", err))
	}

	results := make([]vector.Result, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		r := vector.Result{
			Record: vector.Record{
				ID:       p.GetId().GetUuid(),
				Metadata: map[string]any{},
			},
			Score: p.GetScore(),
		}
		for k, v := range p.GetPayload() {
			switch k {
			case keyNodeID:
				r.NodeID = v.GetStringValue()
			case keyText:
				r.Text = v.GetStringValue()
			default:
				r.Metadata[k] = fromValue(v)
			}
		}
		results = append(results, r)
	}

	s.logger.Debug("queried qdrant",
		"results", len(results),
		"top_k", params.TopK,
		"hnsw_ef", params.EfSearch,
	)
	return results, nil
}

// Count returns the exact number of points in the collection, or zero while
// the collection does not exist yet.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, classify("qdrant.count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPayload(meta map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(meta)+2)
	for k, val := range meta {
		switch tv := val.(type) {
		case string:
			payload[k] = stringValue(tv)
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			payload[k] = stringValue(fmt.Sprint(tv))
		}
	}
	return payload
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	default:
		return nil
	}
}

func classify(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return vector.Unavailable(op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return vector.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ vector.Store = (*Store)(nil)

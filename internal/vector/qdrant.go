package vector

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Vector dimension of the text-embedding-004 model.
const vectorSize = 768

// Embedder turns text into a vector. Satisfied by the Gemini LLM service.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Chunk is one tagged span of document text ready to be embedded and stored.
// UserID and DocID must both be set before a chunk reaches Upsert.
type Chunk struct {
	Text       string
	Page       int
	StartIndex int
	UserID     string
	DocID      string
}

// Filter scopes a search to one user's document partition. Both tags are
// mandatory: searching on doc_id alone would cross tenant boundaries.
type Filter struct {
	UserID string
	DocID  string
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Text       string
	Page       int
	StartIndex int
	Score      float32
}

// Store persists chunk vectors in a single Qdrant collection partitioned by
// user_id/doc_id payload tags.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	embedder    Embedder
	collection  string
}

func NewStore(ctx context.Context, addr, collection string, embedder Embedder) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	s := &Store{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		embedder:    embedder,
		collection:  collection,
	}

	if err := s.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// ensureCollection creates the collection and the keyword payload indexes the
// partition filters rely on. Safe to call on every boot.
func (s *Store) ensureCollection(ctx context.Context) error {
	collections, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	exists := false
	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			exists = true
			break
		}
	}

	if !exists {
		log.Printf("Creating Qdrant collection %q", s.collection)
		_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &qdrantclient.VectorsConfig{
				Config: &qdrantclient.VectorsConfig_Params{
					Params: &qdrantclient.VectorParams{
						Size:     uint64(vectorSize),
						Distance: qdrantclient.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	for _, field := range []string{"user_id", "doc_id"} {
		fieldType := qdrantclient.FieldType_FieldTypeKeyword
		_, err = s.points.CreateFieldIndex(ctx, &qdrantclient.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return fmt.Errorf("failed to create payload index on %s: %w", field, err)
		}
	}
	return nil
}

// Upsert embeds every chunk and writes vector plus payload in one batch.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.UserID == "" || chunk.DocID == "" {
			return fmt.Errorf("refusing to store untagged chunk (page %d, offset %d)", chunk.Page, chunk.StartIndex)
		}

		embedding, err := s.embedder.GetEmbedding(ctx, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}

		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: uuid.NewString()},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: embedding},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"text":        {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Text}},
				"page":        {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(chunk.Page)}},
				"start_index": {Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(chunk.StartIndex)}},
				"user_id":     {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.UserID}},
				"doc_id":      {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.DocID}},
			},
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search embeds the query and returns the k nearest chunks inside the
// (user_id, doc_id) partition, most similar first.
func (s *Store) Search(ctx context.Context, query string, filter Filter, k int) ([]Result, error) {
	embedding, err := s.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		Filter: &qdrantclient.Filter{
			Must: []*qdrantclient.Condition{
				matchKeyword("user_id", filter.UserID),
				matchKeyword("doc_id", filter.DocID),
			},
		},
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]Result, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		results = append(results, Result{
			Text:       payload["text"].GetStringValue(),
			Page:       int(payload["page"].GetIntegerValue()),
			StartIndex: int(payload["start_index"].GetIntegerValue()),
			Score:      point.GetScore(),
		})
	}
	return results, nil
}

// DeleteByFilter removes every point in the partition. Deleting an absent
// partition succeeds with nothing matched.
func (s *Store) DeleteByFilter(ctx context.Context, filter Filter) error {
	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: &qdrantclient.Filter{
					Must: []*qdrantclient.Condition{
						matchKeyword("user_id", filter.UserID),
						matchKeyword("doc_id", filter.DocID),
					},
				},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

func matchKeyword(key, value string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key: key,
				Match: &qdrantclient.Match{
					MatchValue: &qdrantclient.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

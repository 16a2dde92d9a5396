package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

const (
	// upsertBatchSize bounds the number of points sent per upsert request.
	upsertBatchSize = 64

	// mmrFetchFactor widens the raw nearest-neighbor fetch before MMR
	// selection so the selector has a redundant pool to diversify from.
	mmrFetchFactor = 4

	// mmrFetchMin is the floor for the MMR candidate pool size.
	mmrFetchMin = 20
)

// QdrantStore implements VectorStore using Qdrant. The serving index is
// addressed through a collection alias; each rebuild creates a fresh
// generation collection and repoints the alias in a single alias-update
// request, so readers never observe a partially built index.
type QdrantStore struct {
	client *qdrant.Client
	alias  string
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334");
// alias names the served index.
func NewQdrantStore(ctx context.Context, url, alias string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create qdrant client: %v", ErrUnavailable, err)
	}

	return &QdrantStore{client: client, alias: alias}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Rebuild builds a new generation collection from chunks and atomically
// swaps the serving alias onto it. Prior generations are dropped after the
// swap.
func (s *QdrantStore) Rebuild(ctx context.Context, chunks []Chunk, dimension int) error {
	generation := fmt.Sprintf("%s_gen_%s", s.alias, time.Now().UTC().Format("20060102150405"))

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: generation,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create collection: %v", ErrUnavailable, err)
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := s.upsert(ctx, generation, chunks[start:end]); err != nil {
			return err
		}
	}

	previous, err := s.aliasTargets(ctx)
	if err != nil {
		return err
	}

	// Delete+create in one request: the swap is atomic server-side.
	actions := []*qdrant.AliasOperations{}
	if len(previous) > 0 {
		actions = append(actions, qdrant.NewAliasDelete(s.alias))
	}
	actions = append(actions, qdrant.NewAliasCreate(s.alias, generation))

	if err := s.client.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("%w: failed to swap index alias: %v", ErrUnavailable, err)
	}

	for _, old := range previous {
		if old == generation {
			continue
		}
		if err := s.client.DeleteCollection(ctx, old); err != nil {
			return fmt.Errorf("%w: failed to drop previous generation %s: %v", ErrUnavailable, old, err)
		}
	}

	return nil
}

// aliasTargets returns the collections currently behind the serving alias.
func (s *QdrantStore) aliasTargets(ctx context.Context) ([]string, error) {
	aliases, err := s.client.ListAliases(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list aliases: %v", ErrUnavailable, err)
	}

	var targets []string
	for _, a := range aliases {
		if a.GetAliasName() == s.alias {
			targets = append(targets, a.GetCollectionName())
		}
	}
	return targets, nil
}

// upsert inserts chunk points into a generation collection.
func (s *QdrantStore) upsert(ctx context.Context, collection string, chunks []Chunk) error {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Vector...),
			Payload: map[string]*qdrant.Value{
				"content": qdrant.NewValueString(chunk.Content),
				"source":  qdrant.NewValueString(chunk.Source),
				"offset":  qdrant.NewValueInt(int64(chunk.Offset)),
			},
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upsert points: %v", ErrUnavailable, err)
	}

	return nil
}

// Search performs a plain nearest-neighbor similarity search.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	return s.query(ctx, vector, topK, false)
}

// SearchMMR fetches a widened candidate pool (with stored vectors) and
// applies maximal-marginal-relevance selection client-side; Qdrant has no
// native MMR mode.
func (s *QdrantStore) SearchMMR(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	fetchK := topK * mmrFetchFactor
	if fetchK < mmrFetchMin {
		fetchK = mmrFetchMin
	}

	pool, err := s.query(ctx, vector, fetchK, true)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(pool))
	for i, r := range pool {
		vectors[i] = r.Vector
	}

	selected := maximalMarginalRelevance(vector, vectors, DefaultMMRLambda, topK)
	results := make([]SearchResult, len(selected))
	for i, idx := range selected {
		results[i] = pool[idx]
	}
	return results, nil
}

// query runs a nearest-neighbor query against the serving alias.
func (s *QdrantStore) query(ctx context.Context, vector []float32, limit int, withVectors bool) ([]SearchResult, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.alias,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search: %v", ErrUnavailable, err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			ID:       point.Id.GetUuid(),
			Score:    point.Score,
			Metadata: make(map[string]string),
		}

		if payload := point.Payload; payload != nil {
			if content, ok := payload["content"]; ok {
				result.Content = content.GetStringValue()
			}
			if source, ok := payload["source"]; ok {
				result.Metadata["source"] = source.GetStringValue()
			}
			if offset, ok := payload["offset"]; ok {
				result.Metadata["offset"] = strconv.FormatInt(offset.GetIntegerValue(), 10)
			}
		}

		if withVectors {
			result.Vector = point.Vectors.GetVector().GetData()
		}

		results = append(results, result)
	}

	return results, nil
}

// Count reports the number of chunks behind the serving alias.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.alias,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count points: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)

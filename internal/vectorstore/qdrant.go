// Package vectorstore indexes won deals in Qdrant so the recommendation
// skill can surface open deals that look like past wins.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config holds connection settings for a Qdrant instance.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DealIndex wraps gRPC connections to Qdrant's collections and points
// services, scoped to a single deal collection.
type DealIndex struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	collection  string
}

// DealHit is one similar-deal result.
type DealHit struct {
	DealID  string            `json:"deal_id"`
	Score   float32           `json:"score"`
	Payload map[string]string `json:"payload"`
}

// New dials the Qdrant gRPC endpoint and returns a DealIndex over the named
// collection.
func New(cfg Config, collection string) (*DealIndex, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &DealIndex{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		collection:  collection,
	}, nil
}

// EnsureCollection creates the deal collection if it does not already exist.
func (d *DealIndex) EnsureCollection(ctx context.Context, dimension uint64) error {
	_, err := d.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: d.collection})
	if err == nil {
		return nil
	}
	_, err = d.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", d.collection, err)
	}
	return nil
}

// IndexDeal inserts or updates one deal vector with its display payload.
// Qdrant point ids must be UUIDs, so the deal id is hashed into one and kept
// verbatim in the payload for retrieval.
func (d *DealIndex) IndexDeal(ctx context.Context, dealID string, vector []float32, payload map[string]string) error {
	payloadMap := make(map[string]*pb.Value, len(payload)+1)
	for k, v := range payload {
		payloadMap[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
	}
	payloadMap["deal_id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: dealID}}
	pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(dealID)).String()
	_, err := d.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: d.collection,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: payloadMap,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("index deal %s: %w", dealID, err)
	}
	return nil
}

// Similar returns the topK deals nearest to the query vector.
func (d *DealIndex) Similar(ctx context.Context, vector []float32, topK uint64) ([]DealHit, error) {
	resp, err := d.points.Search(ctx, &pb.SearchPoints{
		CollectionName: d.collection,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", d.collection, err)
	}
	hits := make([]DealHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := make(map[string]string)
		for k, v := range r.Payload {
			if sv, ok := v.Kind.(*pb.Value_StringValue); ok {
				payload[k] = sv.StringValue
			}
		}
		dealID := payload["deal_id"]
		if dealID == "" {
			dealID = r.Id.GetUuid()
		}
		delete(payload, "deal_id")
		hits = append(hits, DealHit{
			DealID:  dealID,
			Score:   r.Score,
			Payload: payload,
		})
	}
	return hits, nil
}

// Close tears down the underlying gRPC connection.
func (d *DealIndex) Close() error {
	return d.conn.Close()
}

package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisStore keeps each record in a hash and the id set alongside it.
// Similarity is computed in process over the collection.
type redisStore struct {
	client    *redis.Client
	prefix    string
	dimension int
}

const (
	redisFieldText      = "text"
	redisFieldMetadata  = "metadata"
	redisFieldEmbedding = "embedding"
)

func newRedisStore(ctx context.Context, cfg *Config) (Store, error) {
	opts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("redis: parse dsn: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return newRedisStoreWithClient(client, cfg), nil
}

func newRedisStoreWithClient(client *redis.Client, cfg *Config) *redisStore {
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "products"
	}
	return &redisStore{
		client:    client,
		prefix:    "fingenie:vectors:" + collection,
		dimension: cfg.Dimension,
	}
}

func (r *redisStore) idsKey() string {
	return r.prefix + ":ids"
}

func (r *redisStore) recordKey(id string) string {
	return r.prefix + ":rec:" + id
}

func (r *redisStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != r.dimension {
			return fmt.Errorf("redis: record %q dimension mismatch (got %d want %d)", rec.ID, len(rec.Embedding), r.dimension)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("redis: marshal metadata for %q: %w", rec.ID, err)
		}
		emb, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("redis: marshal embedding for %q: %w", rec.ID, err)
		}
		pipe.HSet(ctx, r.recordKey(rec.ID),
			redisFieldText, rec.Text,
			redisFieldMetadata, string(meta),
			redisFieldEmbedding, string(emb),
		)
		pipe.SAdd(ctx, r.idsKey(), rec.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: upsert: %w", err)
	}
	return nil
}

func (r *redisStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != r.dimension {
		return nil, fmt.Errorf("redis: query dimension mismatch (got %d want %d)", len(query), r.dimension)
	}
	records, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return rankLocal(records, query, opts), nil
}

func (r *redisStore) loadAll(ctx context.Context) ([]Record, error) {
	ids, err := r.client.SMembers(ctx, r.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.recordKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: load records: %w", err)
	}
	records := make([]Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec := Record{ID: ids[i], Text: fields[redisFieldText]}
		if err := json.Unmarshal([]byte(fields[redisFieldEmbedding]), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("redis: decode embedding for %q: %w", ids[i], err)
		}
		if raw := fields[redisFieldMetadata]; raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("redis: decode metadata for %q: %w", ids[i], err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *redisStore) Delete(ctx context.Context, filter Filter) error {
	ids := filter.IDs
	if len(ids) == 0 && len(filter.Metadata) > 0 {
		records, err := r.loadAll(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if metadataMatches(rec.Metadata, filter.Metadata) {
				ids = append(ids, rec.ID)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.recordKey(id))
		pipe.SRem(ctx, r.idsKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}

func (r *redisStore) Close(context.Context) error {
	return r.client.Close()
}

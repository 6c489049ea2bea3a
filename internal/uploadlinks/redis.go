// Package uploadlinks caches upload-link tokens in Redis so the public upload page
// resolves a token without touching the database. The database stays authoritative.
package uploadlinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

// DefaultTTL bounds how long a link without a due date stays cached.
const DefaultTTL = 30 * 24 * time.Hour

// Link is the cached view of a document request.
type Link struct {
	RequestID      string     `json:"request_id"`
	CaseID         string     `json:"case_id"`
	RequestedTypes []string   `json:"requested_types"`
	Message        string     `json:"message"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

func FromRequest(r *models.DocumentRequest) Link {
	return Link{
		RequestID:      r.ID,
		CaseID:         r.CaseID,
		RequestedTypes: r.RequestedTypes,
		Message:        r.Message,
		DueDate:        r.DueDate,
	}
}

type Registry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRegistry connects to redisURL and checks the connection.
func NewRegistry(redisURL string) (*Registry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRegistryWithClient(client), nil
}

func NewRegistryWithClient(client *redis.Client) *Registry {
	return &Registry{client: client, prefix: "upload-link:", ttl: DefaultTTL, now: time.Now}
}

func (r *Registry) key(token string) string { return r.prefix + token }

// Put caches a link until its due date, or DefaultTTL when it has none.
// Links already past due are not cached.
func (r *Registry) Put(ctx context.Context, token string, l Link) error {
	ttl := r.ttl
	if l.DueDate != nil {
		ttl = l.DueDate.Sub(r.now())
		if ttl <= 0 {
			return nil
		}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	if err := r.client.Set(ctx, r.key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache upload link: %w", err)
	}
	return nil
}

// Lookup returns the cached link; ok is false on a miss.
func (r *Registry) Lookup(ctx context.Context, token string) (Link, bool, error) {
	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Link{}, false, nil
	}
	if err != nil {
		return Link{}, false, fmt.Errorf("lookup upload link: %w", err)
	}
	var l Link
	if err := json.Unmarshal(data, &l); err != nil {
		return Link{}, false, fmt.Errorf("unmarshal upload link: %w", err)
	}
	return l, true, nil
}

func (r *Registry) Forget(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

func (r *Registry) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *Registry) Close() error { return r.client.Close() }

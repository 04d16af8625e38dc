package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/nagrik-sahayak/internal/intake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const lockTTL = 2 * time.Minute

// unlockScript deletes the lock only if this holder still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps drafts as JSON blobs with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore wraps client. ttl <= 0 uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("drafts: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("nagrik.internal.drafts"),
	}
}

func (s *RedisStore) Save(ctx context.Context, session *intake.Session) error {
	ctx, span := s.tracer.Start(ctx, "drafts.save")
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("drafts: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, draftKey(session.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("drafts: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (*intake.Session, error) {
	ctx, span := s.tracer.Start(ctx, "drafts.load")
	defer span.End()

	data, err := s.redis.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("drafts: failed to load session: %w", err)
	}

	var session intake.Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("drafts: failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("drafts: failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, lockKey(id), token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("drafts: failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		_ = unlockScript.Run(context.Background(), s.redis, []string{lockKey(id)}, token).Err()
	}, nil
}

func draftKey(id string) string {
	return fmt.Sprintf("draft:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("draft_lock:%s", id)
}

var _ Store = (*RedisStore)(nil)

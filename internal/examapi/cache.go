package examapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/config"
)

// ExamCache is a Redis read-through cache for fetched question sets. It is
// strictly an accelerator: question sets are immutable once created and the
// upstream service remains the source of truth, so a cold or unreachable
// cache only costs an extra fetch. Correct answers are never cached.
type ExamCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewExamCache wraps a Redis client. ttl of zero keeps entries until
// eviction.
func NewExamCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ExamCache {
	return &ExamCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "exam_cache").Logger(),
	}
}

// Get returns the cached question set, if present. Redis errors degrade to
// a miss.
func (c *ExamCache) Get(ctx context.Context, examID int64) (*Exam, bool) {
	data, err := c.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Cache read failed")
		}
		return nil, false
	}

	var exam Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Corrupt cache entry, ignoring")
		return nil, false
	}
	return &exam, true
}

// Put stores a question set. Failures are logged and swallowed; the session
// already holds the fetched exam in memory.
func (c *ExamCache) Put(ctx context.Context, exam *Exam) {
	data, err := json.Marshal(exam)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ExamID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("exam_id", exam.ExamID).Msg("Cache write failed")
	}
}

package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chapterly:session:"

// RedisStore keeps session records server-side in Redis, addressed by an
// opaque session-id cookie. The record survives process restarts and can be
// revoked centrally, which the cookie store cannot do.
type RedisStore struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, cookieName string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, cookieName: cookieName, ttl: ttl}
}

func (s *RedisStore) Load(c *gin.Context) (Record, error) {
	sid, err := c.Cookie(s.cookieName)
	if err != nil || sid == "" {
		return Record{}, ErrNoRecord
	}

	raw, err := s.client.Get(c.Request.Context(), redisKeyPrefix+sid).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNoRecord
		}
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Save writes the record under a freshly minted session id. Whatever id the
// client presented is discarded and its record deleted, so a cookie planted
// before login can never name the authenticated session.
func (s *RedisStore) Save(c *gin.Context, rec Record) error {
	if old, err := c.Cookie(s.cookieName); err == nil && old != "" {
		if err := s.client.Del(c.Request.Context(), redisKeyPrefix+old).Err(); err != nil {
			return err
		}
	}
	sid := uuid.NewString()
	s.setCookie(c, sid, int(s.ttl.Seconds()))

	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(c.Request.Context(), redisKeyPrefix+sid, raw, s.ttl).Err()
}

func (s *RedisStore) Clear(c *gin.Context) error {
	sid, err := c.Cookie(s.cookieName)
	if err != nil || sid == "" {
		return nil
	}
	s.setCookie(c, "", -1)
	// DEL of a missing key is already a no-op.
	return s.client.Del(c.Request.Context(), redisKeyPrefix+sid).Err()
}

func (s *RedisStore) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if value != "" {
		// Replace the request's copy so Load sees the fresh id within the
		// same request, not the id that was just rotated out.
		cookies := c.Request.Cookies()
		c.Request.Header.Del("Cookie")
		for _, ck := range cookies {
			if ck.Name != s.cookieName {
				c.Request.AddCookie(ck)
			}
		}
		c.Request.AddCookie(&http.Cookie{Name: s.cookieName, Value: value})
	}
}

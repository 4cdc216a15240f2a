package session

import (
	"encoding/json"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// recordKey is the single slot the serialized session record lives under.
const recordKey = "session"

// CookieStore keeps the session record inside the encrypted session cookie
// managed by gin-contrib/sessions. The router must install the
// sessions.Sessions middleware before Hydrate runs.
type CookieStore struct{}

var _ Store = (*CookieStore)(nil)

func NewCookieStore() *CookieStore {
	return &CookieStore{}
}

func (s *CookieStore) Load(c *gin.Context) (Record, error) {
	raw, ok := sessions.Default(c).Get(recordKey).(string)
	if !ok || raw == "" {
		return Record{}, ErrNoRecord
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *CookieStore) Save(c *gin.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	sess := sessions.Default(c)
	sess.Set(recordKey, string(raw))
	return sess.Save()
}

func (s *CookieStore) Clear(c *gin.Context) error {
	sess := sessions.Default(c)
	if sess.Get(recordKey) == nil {
		return nil
	}
	sess.Delete(recordKey)
	return sess.Save()
}

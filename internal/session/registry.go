package session

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"availability-bot/internal/models"
	"availability-bot/pkg/logger"
)

const (
	DefaultIdleTTL  = 24 * time.Hour
	DefaultCapacity = 10000
)

// Registry holds at most one live session per user. Sessions idle longer
// than the TTL are dropped, as are the least recently used ones once the
// capacity is reached.
type Registry struct {
	poll  models.PollConfig
	cache *expirable.LRU[int64, *Session]
}

func NewRegistry(poll models.PollConfig, capacity int, ttl time.Duration, log *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}

	onEvict := func(userID int64, s *Session) {
		if !s.Phase.Terminal() {
			log.Debug("session evicted",
				zap.Int64(logger.FieldUserID, userID),
				zap.String(logger.FieldPhase, string(s.Phase)))
		}
	}

	return &Registry{
		poll:  poll,
		cache: expirable.NewLRU[int64, *Session](capacity, onEvict, ttl),
	}
}

// Start creates a fresh session, replacing any live one for the same user.
func (r *Registry) Start(identity models.Identity) *Session {
	s := New(identity, r.poll)
	r.cache.Add(identity.UserID, s)
	return s
}

// Get returns the live session and refreshes its idle deadline.
func (r *Registry) Get(userID int64) (*Session, bool) {
	s, ok := r.cache.Get(userID)
	if !ok {
		return nil, false
	}
	r.cache.Add(userID, s)
	return s, true
}

// End drops the user's session.
func (r *Registry) End(userID int64) {
	r.cache.Remove(userID)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

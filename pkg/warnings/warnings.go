// Package warnings emits user-facing warnings with throttling, so
// heavy workloads do not flood logs with repeated rate-limit or
// server-error notices.
//
// The registry is explicit state owned by the caller rather than a
// process-wide global, which keeps tests free of cross-test leakage.
package warnings

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Category classifies a warning for throttling purposes.
type Category string

const (
	// CategoryExperimental marks warnings about experimental features.
	// Emitted at most once per distinct message for the registry's
	// lifetime.
	CategoryExperimental Category = "experimental"

	// CategoryRateLimit marks 429 responses. Emitted at most once per
	// window.
	CategoryRateLimit Category = "rate_limit"

	// CategoryServerError marks 5xx responses and transport failures.
	// Emitted at most once per window.
	CategoryServerError Category = "server_error"

	// CategoryDegraded marks partially degraded responses. Not
	// throttled.
	CategoryDegraded Category = "degraded"
)

// Window is the minimum interval between two warnings of the same
// per-window category.
const Window = time.Minute

type messageKey struct {
	category Category
	message  string
}

// Registry tracks which warnings were already emitted.
type Registry struct {
	logger zerolog.Logger
	now    func() time.Time

	mu            sync.Mutex
	seenMessages  map[messageKey]struct{}
	silencedUntil map[Category]time.Time
}

// NewRegistry creates a registry that emits warnings through logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		now:           time.Now,
		seenMessages:  make(map[messageKey]struct{}),
		silencedUntil: make(map[Category]time.Time),
	}
}

// WithClock replaces the registry's time source. For tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Warn emits the message unless its category's throttling policy
// suppresses it. It never fails and never panics; warnings are
// advisory by contract.
func (r *Registry) Warn(category Category, message string) {
	if !r.shouldEmit(category, message) {
		return
	}
	r.logger.Warn().Str("category", string(category)).Msg(message)
}

func (r *Registry) shouldEmit(category Category, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch category {
	case CategoryExperimental:
		key := messageKey{category: category, message: message}
		if _, seen := r.seenMessages[key]; seen {
			return false
		}
		r.seenMessages[key] = struct{}{}
		return true

	case CategoryRateLimit, CategoryServerError:
		now := r.now()
		if until, ok := r.silencedUntil[category]; ok && until.After(now) {
			return false
		}
		r.silencedUntil[category] = now.Add(Window)
		return true

	default:
		return true
	}
}

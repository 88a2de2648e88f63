package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tendril/pkg/ports"
)

// Mask replaces every value whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.KeyValueStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values before they are stored.
// A store key matching a pattern masks the whole value; nested object fields
// are masked by their own names.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.KeyValueStore) ports.KeyValueStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Put(ctx context.Context, key string, value any) error {
	if m.matches(key) {
		return m.next.Put(ctx, key, Mask)
	}
	// mask copies; the caller's value is never mutated.
	return m.next.Put(ctx, key, m.mask(value))
}

func (m *piiMiddleware) Get(ctx context.Context, key string) (any, bool, error) {
	return m.next.Get(ctx, key)
}

func (m *piiMiddleware) Keys(ctx context.Context) ([]string, error) {
	return m.next.Keys(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) mask(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, sub := range v {
			if m.matches(k) {
				out[k] = Mask
				continue
			}
			out[k] = m.mask(sub)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, sub := range v {
			out[i] = m.mask(sub)
		}
		return out
	}
	return value
}

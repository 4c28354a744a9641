package middleware

import (
	"context"
	"regexp"

	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
)

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMasking creates a middleware that masks context values whose keys
// match any of the patterns before they reach the backend. Masking is
// write-side only and irreversible; the running conversation keeps its
// real values until the next load.
func NewPIIMasking(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	masked := deepCopy(convCtx)
	maskMap(masked, m.patterns)
	return m.next.Set(ctx, chatID, stateID, masked)
}

func (m *piiMiddleware) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	return m.next.Get(ctx, chatID)
}

func (m *piiMiddleware) Delete(ctx context.Context, chatID string) error {
	return m.next.Delete(ctx, chatID)
}

// deepCopy clones nested maps so masking cannot scribble on the caller's
// context.
func deepCopy(c domain.Context) domain.Context {
	out := make(domain.Context, len(c))
	for k, v := range c {
		if sub, ok := v.(map[string]any); ok {
			out[k] = map[string]any(deepCopy(domain.Context(sub)))
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}
		if sub, ok := v.(map[string]any); ok {
			maskMap(sub, patterns)
		}
	}
}

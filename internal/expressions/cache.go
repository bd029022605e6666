package expressions

import (
	"sync"

	"github.com/stack21/flowengine/pkg/schema"
)

// programCache memoizes compiled programs by source text. The zero value
// is ready to use and safe for concurrent use.
type programCache[P any] struct {
	mu       sync.RWMutex
	programs map[string]P
}

func (c *programCache[P]) get(src string, compile func(string) (P, error)) (P, error) {
	c.mu.RLock()
	p, ok := c.programs[src]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[src]; ok {
		return p, nil
	}
	p, err := compile(src)
	if err != nil {
		return p, err
	}
	if c.programs == nil {
		c.programs = make(map[string]P)
	}
	c.programs[src] = p
	return p, nil
}

func (c *programCache[P]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// expressionError wraps a compile or evaluation failure, e.g.
// expressionError("CEL compile error in", "a >", err).
func expressionError(what, expression string, err error) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s %q: %s", what, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

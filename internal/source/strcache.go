package source

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// StringCache dedups identifier and literal text for one worker.
// It is not goroutine-safe: every worker owns its own cache.
type StringCache struct {
	index map[string]string
}

// NewStringCache creates an empty cache.
func NewStringCache() *StringCache {
	return &StringCache{index: make(map[string]string, 256)}
}

// Intern returns the canonical copy of b. Non-ASCII text is NFC-normalized
// so that visually equal identifiers hash equally.
func (c *StringCache) Intern(b []byte) string {
	if s, ok := c.index[string(b)]; ok {
		return s
	}
	return c.store(string(b))
}

// InternString is Intern for string input.
func (c *StringCache) InternString(s string) string {
	if cached, ok := c.index[s]; ok {
		return cached
	}
	return c.store(s)
}

func (c *StringCache) store(s string) string {
	key := s
	if !isASCII(s) && utf8.ValidString(s) {
		s = norm.NFC.String(s)
	}
	if cached, ok := c.index[s]; ok {
		c.index[key] = cached
		return cached
	}
	cpy := string([]byte(s))
	c.index[cpy] = cpy
	if key != cpy {
		c.index[key] = cpy
	}
	return cpy
}

// Len reports the number of distinct keys.
func (c *StringCache) Len() int {
	return len(c.index)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

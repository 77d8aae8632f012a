package gate

import (
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// BlocklistPatterns holds the raw pattern strings.
type BlocklistPatterns struct {
	Identities []string `yaml:"identities"`
}

// Blocklist matches declared client identity strings (User-Agent,
// X-Agent-ID) against operator-configured patterns. Matching is
// case-insensitive substring containment with optional "*" wildcards.
type Blocklist struct {
	mu       sync.RWMutex
	patterns []string
	raw      BlocklistPatterns
}

// DefaultBlocklistPatterns are identity fragments blocked out of the box.
var DefaultBlocklistPatterns = BlocklistPatterns{
	Identities: []string{
		"sqlmap",
		"nikto",
		"masscan",
		"zgrab",
	},
}

// NewBlocklist creates a Blocklist from raw patterns.
func NewBlocklist(p BlocklistPatterns) *Blocklist {
	b := &Blocklist{raw: p}
	for _, id := range p.Identities {
		b.patterns = append(b.patterns, strings.ToLower(id))
	}
	return b
}

// LoadBlocklist reads a blocklist from a YAML file. Falls back to
// defaults if the path is empty or the file doesn't exist.
func LoadBlocklist(path string) (*Blocklist, error) {
	if path == "" {
		return NewBlocklist(DefaultBlocklistPatterns), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewBlocklist(DefaultBlocklistPatterns), nil
		}
		return nil, err
	}

	var p BlocklistPatterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return NewBlocklist(p), nil
}

// IsBlocked checks the declared identity against all patterns.
// Returns (blocked, matched pattern).
func (b *Blocklist) IsBlocked(identity string) (bool, string) {
	if identity == "" {
		return false, ""
	}
	b.mu.RLock()
	patterns := b.patterns
	b.mu.RUnlock()

	lower := strings.ToLower(identity)
	for _, p := range patterns {
		if matchPattern(lower, p) {
			return true, p
		}
	}
	return false, ""
}

// Swap atomically replaces the pattern set with another blocklist's.
// Used by the hot-reloader.
func (b *Blocklist) Swap(other *Blocklist) {
	b.mu.Lock()
	b.patterns = other.patterns
	b.raw = other.raw
	b.mu.Unlock()
}

// matchPattern does containment matching with "*" treated as a
// segment separator: "bad*bot" matches any identity containing
// "bad" followed somewhere later by "bot".
func matchPattern(identity, pattern string) bool {
	parts := strings.Split(pattern, "*")
	rest := identity
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return true
}

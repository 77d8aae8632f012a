package token

import "strings"

// providerKeywords maps substrings seen in User-Agent strings to a
// provider label. Order matters only within one entry's keywords.
var providerKeywords = []struct {
	provider string
	keywords []string
}{
	{"openai", []string{"openai", "gpt-", "chatgpt"}},
	{"anthropic", []string{"anthropic", "claude"}},
	{"google", []string{"google", "gemini", "bard"}},
	{"meta", []string{"meta-ai", "llama"}},
	{"mistral", []string{"mistral"}},
	{"perplexity", []string{"perplexity"}},
}

// DetectProvider guesses which provider an agent belongs to from its
// User-Agent string. Best-effort labeling for display and audit only;
// it must never feed an authorization decision.
func DetectProvider(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return "unknown"
	}
	for _, entry := range providerKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(ua, kw) {
				return entry.provider
			}
		}
	}
	return "unknown"
}

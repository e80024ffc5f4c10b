package recommend

import (
	"fmt"
	"strings"
)

// maxTokenLen caps a token at 64 runes.
const maxTokenLen = 64

// TokenizeQuery splits a free-text query on whitespace and tokenizes it.
func TokenizeQuery(query string) []string {
	return Tokenize(strings.Fields(query))
}

// Tokenize normalizes pre-split tokens: trimmed, lower-cased, truncated to
// 64 runes, empties dropped, duplicates removed in insertion order. Every
// surviving token registers twice: the bare token and a position-tagged
// variant carrying its original index, so lexical and positional signals
// track as independent identities.
func Tokenize(parts []string) []string {
	seen := make(map[string]struct{}, 2*len(parts))
	tokens := make([]string, 0, 2*len(parts))

	register := func(token string) {
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}

	for index, part := range parts {
		token := strings.ToLower(strings.TrimSpace(part))
		if runes := []rune(token); len(runes) > maxTokenLen {
			token = string(runes[:maxTokenLen])
		}
		if token == "" {
			continue
		}
		register(token)
		register(fmt.Sprintf("<t>:[%s]:<p>[%d]", token, index))
	}

	return tokens
}

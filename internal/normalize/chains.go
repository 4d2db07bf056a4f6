package normalize

import "strings"

// ChainResolver canonicalizes chain identifiers through a configured
// name table.
type ChainResolver struct {
	names map[string]string
}

// NewChainResolver builds a resolver from the configured chain-name table.
func NewChainResolver(names map[string]string) *ChainResolver {
	table := make(map[string]string, len(names))
	for k, v := range names {
		table[strings.ToLower(k)] = v
	}
	return &ChainResolver{names: table}
}

// Resolve picks the canonical chain name: the orchestrator's hint if it maps,
// then the source-native identifier through the table, then the raw
// identifier as-is, then "unknown".
func (c *ChainResolver) Resolve(hint, native string) string {
	if hint != "" {
		if canonical, ok := c.names[strings.ToLower(hint)]; ok {
			return canonical
		}
		return hint
	}
	if native != "" {
		if canonical, ok := c.names[strings.ToLower(native)]; ok {
			return canonical
		}
		return native
	}
	return "unknown"
}

package common

// Substrate namespaces. Cards, cache and sessions never share a namespace.
const (
	NamespaceCards    = "unified_cards"
	NamespaceCache    = "unified_cache"
	NamespaceSessions = "unified_sessions"

	// NamespaceLegacy holds the flat keys written by earlier product
	// versions. Every key is one location holding a JSON array of cards.
	NamespaceLegacy = "legacy"
)

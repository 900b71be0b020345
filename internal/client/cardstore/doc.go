// Package cardstore owns the canonical on-device card collection.
//
// The Scanner enumerates every namespace that may hold cards: the canonical
// namespace plus the legacy keys written by earlier product versions
// ("cards", "saved_cards", "card_collection", the per-user "cards_<id>"
// family and anything named "*_cards"). The Store serves reads and writes
// against the canonical namespace only, and Consolidate folds the legacy
// locations into it with last-writer-wins by UpdatedAt.
//
// Tie-break on equal UpdatedAt: the canonical copy wins, otherwise the first
// location in lexicographic key order wins.
package cardstore

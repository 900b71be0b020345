package models

import (
	"encoding/json"
	"time"
)

// StorageLocation is one on-device namespace that holds cards.
type StorageLocation struct {
	Key       string       `json:"key"`
	Canonical bool         `json:"canonical"`
	Cards     []CardRecord `json:"cards"`
	// Invalid counts records that were present but could not be decoded.
	Invalid int `json:"invalid"`
}

// StorageReport is an on-demand view across every location. It is never
// persisted.
type StorageReport struct {
	TotalCards     int               `json:"totalCards"`
	Locations      []StorageLocation `json:"locations"`
	DuplicateCount int               `json:"duplicateCount"`
	Errors         []string          `json:"errors"`
}

// ConsolidationResult is what the canonical store reports after merging.
type ConsolidationResult struct {
	MovedCount int
	// Cleaned lists the legacy keys that were merged and then removed.
	Cleaned []string
	Errors  []error
}

// MigrationResult is the façade-level summary of a migration run.
type MigrationResult struct {
	MigratedCount    int      `json:"migratedCount"`
	CleanedLocations []string `json:"cleanedLocations"`
}

// CacheEntry lives only in the cache namespace.
type CacheEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// SessionRecord holds a short-lived editor/UI blob. It has no expiry.
type SessionRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

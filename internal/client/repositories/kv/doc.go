// Package kv provides the on-device storage substrate: a namespaced
// key→blob store.
//
// # Overview
//
// Every higher-level store (canonical cards, TTL cache, sessions, legacy
// locations) lives in its own namespace of one Repository. Two
// implementations exist:
//
//   - SQLiteRepository: table kv(namespace, key, value) over dbx.DBTX
//   - BoltRepository: one bbolt bucket per namespace
//
// # Contract
//
// Get on a missing key returns (nil, nil). Delete of a missing key is not an
// error. Keys returns keys in lexicographic order. Values are opaque.
//
// Typical Usage
//
//	repo := kv.NewSQLiteRepository(db)
//	_ = repo.Set(ctx, common.NamespaceCards, id, blob)
//	blob, _ := repo.Get(ctx, common.NamespaceCards, id)
//	all, _ := repo.List(ctx, common.NamespaceCards)
package kv

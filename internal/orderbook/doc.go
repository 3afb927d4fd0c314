// Package orderbook is a single-writer matching engine with lock-free-ish
// concurrent reads: submissions and cancellations serialize on one book's
// submitMu, while best-price lookups, level iteration, and snapshotting
// proceed through per-side and per-level locks without ever touching it.
package orderbook

// Package store persists the pipeline ledger in SQLite: topics, content
// pieces, pipeline runs with their stage history, approvals, and the
// append-only pipeline log. Single-record operations are atomic; the
// store makes no cross-record transactional guarantees.
package store

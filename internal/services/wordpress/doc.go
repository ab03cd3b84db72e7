// Package wordpress is a narrow adapter for the WordPress REST API:
// draft creation, publication, and post retrieval. Operations are
// idempotent once a post id has been recorded on the content piece.
package wordpress

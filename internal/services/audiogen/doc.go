// Package audiogen wraps the podcast audio synthesis API using the same
// submit/poll shape as the other generation providers.
package audiogen

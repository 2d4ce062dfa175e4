// Package types defines the record contract, the normalized error returned by
// every yorm operation, the sentinel errors it wraps, and the Config used to
// open a connection pool.
package types

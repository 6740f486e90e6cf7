// Package shares owns the media library: it wires the filesystem
// scanner, the track index, and the thumbnail pipeline together and is
// the only package that mutates the index.
//
// Scanner events update the index synchronously; enrichment runs
// asynchronously and re-upserts the track when it completes, so
// listings are available immediately with placeholder metadata.
// Snapshot saves are debounced because a full scan can emit thousands
// of events in a burst.
package shares

// Package cache holds the in-memory media index and its JSON snapshot
// persistence.
//
// Tracks are keyed by their path-derived id and grouped per share. The
// snapshot file is a plain JSON document written atomically via a
// temp-file rename, so a crash mid-save never corrupts the previous
// snapshot. Loading a missing or unreadable snapshot yields an empty
// cache; the next full scan repopulates it.
package cache

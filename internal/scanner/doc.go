/*
Package scanner discovers media files under the configured share roots.

Two code paths feed the same event callbacks: a full recursive walk
(ScanShare) and a live fsnotify watcher (StartWatching). Both identify
files with the path-derived id from internal/fileid, so any interleaving
of walk results and watch events converges once applied as idempotent
upserts and deletes by the owner of the index.

The scanner never mutates index state itself; it only reports
file-found, file-removed, and directory-found events.
*/
package scanner

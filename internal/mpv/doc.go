/*
Package mpv supervises external mpv player processes and exposes a
command interface over mpv's JSON IPC protocol.

Each instance is an mpv process started in idle mode with a dedicated
unix socket endpoint derived from the instance id. Commands are
exchanged as newline-delimited JSON: every call opens a fresh
connection, writes a single request carrying a monotonically increasing
request_id, and waits for the response bearing the same request_id.
Opening a connection per command costs a little per call but means
concurrent callers never share a connection, so no cross-command
interference is possible and no writer serialization is needed.

Instance lifecycle is starting -> running | error, running -> stopped |
error. A background watcher records the process exit whenever it
happens, and a periodic sweep reclaims instances in error status or
unseen past the staleness window.
*/
package mpv

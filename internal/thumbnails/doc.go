// Package thumbnails extracts preview frames and media durations with
// ffmpeg and ffprobe.
//
// Jobs are single-flight per file id: queueing an id that is already
// queued or running attaches the caller to the existing job instead of
// spawning another extraction. A small worker pool bounds how many
// external processes run at once, and every job carries a hard timeout
// so a wedged ffmpeg cannot stall the queue. Extraction to an output
// that already exists short-circuits to a duration probe only.
package thumbnails

// Package fileid derives stable identifiers for media files from their
// absolute paths. IDs are content-independent, so re-indexing the same
// path always produces the same ID regardless of file modifications.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

// Length is the number of hex characters in a generated ID.
const Length = 16

// Generate returns the ID for the given absolute file path. It is a pure
// function of the path: the live-watch and full-scan code paths must agree
// on IDs for idempotent merging, and IDs must survive process restarts.
func Generate(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:Length]
}

// Package mediatypes defines which file extensions are treated as
// indexable media by the scanner and the share index.
package mediatypes

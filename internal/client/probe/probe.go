// Package probe inspects a local audio file before it is uploaded.
package probe

import (
	"os"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
)

// Info is what could be learned about a file. Fields that could not be
// determined are left zero; SizeKnown tells an empty file from an
// unknown size.
type Info struct {
	SizeBytes int64
	SizeKnown bool
	MimeType  string
	Title     string
	Artist    string
}

// Probe never fails: an unreadable file yields an Info with SizeKnown
// false, and the caller proceeds without the size precheck.
func Probe(path string) Info {
	var info Info

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return info
	}
	info.SizeBytes = st.Size()
	info.SizeKnown = true

	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer f.Close()

	if mt, err := mimetype.DetectReader(f); err == nil {
		info.MimeType = mt.String()
	}

	if _, err := f.Seek(0, 0); err != nil {
		return info
	}
	if md, err := tag.ReadFrom(f); err == nil {
		info.Title = md.Title()
		info.Artist = md.Artist()
	}
	return info
}

package store

import "time"

// Info describes a stripe object as stat would report it. It is a trimmed
// version of os.FileInfo: a stripe is never a directory and never carries
// a meaningful permission mode, so the adapter only exposes what the
// striped I/O engine actually reads.
type Info struct {
	Size    int64
	ModTime time.Time
}

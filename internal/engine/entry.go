package engine

import (
	"strings"
	"time"
)

// Entry is a single item of a ZIP container. It is read once from the input
// archive and written once to the output archive.
type Entry struct {
	Name           string
	Data           []byte
	Method         uint16
	Modified       time.Time
	Comment        string
	CreatorVersion uint16
	ExternalAttrs  uint32
}

// IsDir reports whether the entry is a directory entry.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

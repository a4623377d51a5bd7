// Package epub holds the pieces of the OCF container format that the
// rewriter has to respect.
package epub

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

const (
	// MimetypeName is the entry that must open every OCF container, stored
	// without compression.
	MimetypeName = "mimetype"

	// MediaType is the expected content of the mimetype entry.
	MediaType = "application/epub+zip"

	// MetaInfDir holds container metadata; nothing in it is ever transformed.
	MetaInfDir = "META-INF/"

	// EncryptionPath lists resources that are encrypted or obfuscated.
	EncryptionPath = "META-INF/encryption.xml"
)

type xmlEncryption struct {
	XMLName       xml.Name           `xml:"encryption"`
	EncryptedData []xmlEncryptedData `xml:"EncryptedData"`
}

type xmlEncryptedData struct {
	CipherReference xmlCipherReference `xml:"CipherData>CipherReference"`
}

type xmlCipherReference struct {
	URI string `xml:"URI,attr"`
}

// findFileInsensitive looks up a ZIP entry by path, first trying an exact
// match, then a case-insensitive one.
func findFileInsensitive(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// EncryptedResources returns the set of entry names referenced by
// META-INF/encryption.xml. Those resources are either DRM protected or
// obfuscated and must be copied untouched. A container without
// encryption.xml yields an empty set.
func EncryptedResources(files []*zip.File) (map[string]bool, error) {
	resources := make(map[string]bool)

	f := findFileInsensitive(files, EncryptionPath)
	if f == nil {
		return resources, nil
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}

	var enc xmlEncryption
	if err := xml.Unmarshal(stripBOM(data), &enc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.Name, err)
	}

	for _, ed := range enc.EncryptedData {
		if name := resourceName(ed.CipherReference.URI); name != "" {
			resources[name] = true
		}
	}

	return resources, nil
}

// resourceName turns a CipherReference URI, relative to the container root,
// into an entry name.
func resourceName(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(uri); err == nil {
		uri = decoded
	}
	return strings.TrimPrefix(path.Clean("/"+uri), "/")
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// CheckLayout reports deviations from the OCF rules for the mimetype entry:
// it must exist, come first, be stored uncompressed and hold MediaType.
// The rewriter always stores it on output, the other findings are kept as is.
func CheckLayout(files []*zip.File) []string {
	var warnings []string

	idx := -1
	for i, f := range files {
		if f.Name == MimetypeName {
			idx = i
			break
		}
	}
	if idx < 0 {
		return append(warnings, "archive has no mimetype entry")
	}

	f := files[idx]
	if idx != 0 {
		warnings = append(warnings, fmt.Sprintf("mimetype entry is at position %d instead of first", idx))
	}
	if f.Method != zip.Store {
		warnings = append(warnings, "mimetype entry is compressed in the input")
	}

	rc, err := f.Open()
	if err != nil {
		return append(warnings, fmt.Sprintf("mimetype entry cannot be opened: %v", err))
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, 256))
	if err != nil {
		return append(warnings, fmt.Sprintf("mimetype entry cannot be read: %v", err))
	}
	if got := strings.TrimSpace(string(content)); got != MediaType {
		warnings = append(warnings, fmt.Sprintf("mimetype entry is %q, expected %q", got, MediaType))
	}

	return warnings
}

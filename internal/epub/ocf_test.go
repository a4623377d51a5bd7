package epub

import (
	"archive/zip"
	"bytes"
	"testing"

	kzip "github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	name   string
	data   string
	method uint16
}

func buildArchive(t *testing.T, entries ...testEntry) []*kzip.File {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		_, err = w.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := kzip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return zr.File
}

const encryptionXML = `<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container"
            xmlns:enc="http://www.w3.org/2001/04/xmlenc#">
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding"/>
    <enc:CipherData>
      <enc:CipherReference URI="OEBPS/fonts/serif.otf"/>
    </enc:CipherData>
  </enc:EncryptedData>
  <enc:EncryptedData>
    <enc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes128-cbc"/>
    <enc:CipherData>
      <enc:CipherReference URI="OEBPS/images/cover%20art.jpg"/>
    </enc:CipherData>
  </enc:EncryptedData>
</encryption>`

func TestEncryptedResources(t *testing.T) {
	t.Run("no encryption descriptor", func(t *testing.T) {
		files := buildArchive(t, testEntry{name: "mimetype", data: MediaType})

		resources, err := EncryptedResources(files)

		require.NoError(t, err)
		assert.Empty(t, resources)
	})

	t.Run("lists cipher references", func(t *testing.T) {
		files := buildArchive(t,
			testEntry{name: "mimetype", data: MediaType},
			testEntry{name: EncryptionPath, data: encryptionXML, method: zip.Deflate},
		)

		resources, err := EncryptedResources(files)

		require.NoError(t, err)
		assert.Equal(t, map[string]bool{
			"OEBPS/fonts/serif.otf":      true,
			"OEBPS/images/cover art.jpg": true,
		}, resources)
	})

	t.Run("case insensitive lookup", func(t *testing.T) {
		files := buildArchive(t, testEntry{name: "meta-inf/Encryption.xml", data: encryptionXML})

		resources, err := EncryptedResources(files)

		require.NoError(t, err)
		assert.Len(t, resources, 2)
	})

	t.Run("malformed descriptor", func(t *testing.T) {
		files := buildArchive(t, testEntry{name: EncryptionPath, data: "<encryption><broken"})

		_, err := EncryptedResources(files)

		assert.ErrorContains(t, err, "failed to parse")
	})
}

func TestResourceName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "OEBPS/a.jpg", want: "OEBPS/a.jpg"},
		{uri: "/OEBPS/a.jpg", want: "OEBPS/a.jpg"},
		{uri: "OEBPS/../a.jpg", want: "a.jpg"},
		{uri: "../../etc/passwd", want: "etc/passwd"},
		{uri: "OEBPS/a%20b.png", want: "OEBPS/a b.png"},
		{uri: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceName(tt.uri))
		})
	}
}

func TestCheckLayout(t *testing.T) {
	tests := []struct {
		name    string
		entries []testEntry
		want    []string
	}{
		{
			name: "valid layout",
			entries: []testEntry{
				{name: MimetypeName, data: MediaType, method: zip.Store},
				{name: "content.opf", data: "<package/>", method: zip.Deflate},
			},
			want: nil,
		},
		{
			name: "missing mimetype",
			entries: []testEntry{
				{name: "content.opf", data: "<package/>"},
			},
			want: []string{"archive has no mimetype entry"},
		},
		{
			name: "mimetype not first and compressed",
			entries: []testEntry{
				{name: "content.opf", data: "<package/>"},
				{name: MimetypeName, data: MediaType, method: zip.Deflate},
			},
			want: []string{
				"mimetype entry is at position 1 instead of first",
				"mimetype entry is compressed in the input",
			},
		},
		{
			name: "wrong media type",
			entries: []testEntry{
				{name: MimetypeName, data: "application/zip"},
			},
			want: []string{`mimetype entry is "application/zip", expected "application/epub+zip"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckLayout(buildArchive(t, tt.entries...)))
		})
	}
}

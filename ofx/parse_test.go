package ofx

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderProfileDocument(t *testing.T, version string) string {
	t.Helper()
	builder := newTestBuilder(t, version)
	document, err := builder.ProfileRequest(&ServerInstance{URL: "https://example.com/ofx", FID: "1001", Org: "BankCo"})
	require.NoError(t, err)
	return document
}

func TestParseFileV1(t *testing.T) {
	file, err := ParseFile(renderProfileDocument(t, "102"))
	require.NoError(t, err)
	assert.Equal(t, Gen1, file.Generation)
	assert.Equal(t, "102", file.Header[FieldVersion])
	assert.Equal(t, "100", file.Header[FieldOFXHeader])
	assert.Equal(t, "NONE", file.Header[FieldSecurity])
}

func TestParseFileV2(t *testing.T) {
	file, err := ParseFile(renderProfileDocument(t, "203"))
	require.NoError(t, err)
	assert.Equal(t, Gen2, file.Generation)
	assert.Equal(t, "203", file.Header[FieldVersion])
	assert.Equal(t, "200", file.Header[FieldOFXHeader])
	assert.Equal(t, "NONE", file.Header[FieldSecurity])
	assert.Equal(t, "NONE", file.Header[FieldOldFileUID])
	assert.Equal(t, "NONE", file.Header[FieldNewFileUID])
}

func TestParseFileNewlineInvariance(t *testing.T) {
	for _, version := range []string{"102", "203"} {
		t.Run(version, func(t *testing.T) {
			document := renderProfileDocument(t, version)
			crlfDocument := strings.Replace(document, "\n", "\r\n", -1)

			lfFile, err := ParseFile(document)
			require.NoError(t, err)
			crlfFile, err := ParseFile(crlfDocument)
			require.NoError(t, err)

			assert.Equal(t, lfFile.Header, crlfFile.Header)
			assert.Equal(t, lfFile.Text, crlfFile.Text)
		})
	}
}

func TestParseFileIdempotent(t *testing.T) {
	document := renderProfileDocument(t, "102")
	first, err := ParseFile(document)
	require.NoError(t, err)
	second, err := ParseFile(document)
	require.NoError(t, err)
	assert.Equal(t, first.Header, second.Header)
}

func TestParseFileUnrecognized(t *testing.T) {
	for _, text := range []string{
		"",
		"hello world",
		"<html><body>Not Found</body></html>",
		"XOFXHEADER:100\nVERSION:102\n",
	} {
		_, err := ParseFile(text)
		require.Error(t, err, "text %q", text)
		assert.Equal(t, ErrUnrecognizedHeader, errors.Cause(err))
	}
}

func TestParseFileV1MissingVersion(t *testing.T) {
	_, err := ParseFile("OFXHEADER:100\nDATA:OFXSGML\n\n<OFX>\n</OFX>\n")
	require.Error(t, err)
	assert.Equal(t, ErrMissingVersion, errors.Cause(err))
}

func TestParseFileV2Malformed(t *testing.T) {
	for _, text := range []string{
		`<?OFX OFXHEADER="200"?>`,
		`<?OFX OFXHEADER="200" VERSION="abc" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>`,
		`<?OFX OFXHEADER="200" SECURITY="NONE" VERSION="203" OLDFILEUID="NONE" NEWFILEUID="NONE"?>`,
	} {
		_, err := ParseFile(text)
		require.Error(t, err, "text %q", text)
		assert.Equal(t, ErrMalformedV2Header, errors.Cause(err))
	}
}

func TestParseFileV2WrappedHeader(t *testing.T) {
	// servers in the wild wrap the processing instruction across lines
	text := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\r\n" +
		`<?OFX OFXHEADER="200" VERSION="203" SECURITY="NONE" OLDFILEUID="NONE"` + "\r\n" +
		`NEWFILEUID="NONE"?>` + "\r\n"
	file, err := ParseFile(text)
	require.NoError(t, err)
	assert.Equal(t, Gen2, file.Generation)
	assert.Equal(t, "203", file.Header[FieldVersion])
}

func TestParseFileV1StopsScanAtBody(t *testing.T) {
	file, err := ParseFile(renderProfileDocument(t, "102"))
	require.NoError(t, err)
	// lines longer than a plausible header line end the header region, so
	// the scan never reaches body tags
	for field := range file.Header {
		assert.NotContains(t, field, "<")
	}
	_, hasEncoding := file.Header[FieldEncoding]
	assert.False(t, hasEncoding, "scan should stop before the ENCODING line")
}

func TestParseBytes(t *testing.T) {
	document := renderProfileDocument(t, "102")
	file, err := ParseBytes([]byte(document))
	require.NoError(t, err)
	assert.Equal(t, "102", file.Header[FieldVersion])
}

func TestParseBytesWindows1252(t *testing.T) {
	document := renderProfileDocument(t, "102")
	// 0xE9 is "é" in Windows-1252 and invalid on its own in UTF-8
	raw := []byte(strings.Replace(document, "BankCo", "Banque Andr\xe9", 1))
	file, err := ParseBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "102", file.Header[FieldVersion])
	assert.Contains(t, file.Text, "Banque André")
}

func TestIsResponse(t *testing.T) {
	assert.True(t, IsResponse("OFXHEADER:100\nVERSION:102\n"))
	assert.True(t, IsResponse("junk before <?OFX OFXHEADER=\"200\" ..."))
	assert.False(t, IsResponse("<html>nope</html>"))
	assert.False(t, IsResponse("trailing OFXHEADER is not a prefix"))
}

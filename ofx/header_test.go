package ofx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeaderV1(t *testing.T) {
	header, err := RenderHeader("102")
	require.NoError(t, err)
	expected := strings.Join([]string{
		"OFXHEADER:100",
		"DATA:OFXSGML",
		"VERSION:102",
		"SECURITY:NONE",
		"ENCODING:USASCII",
		"CHARSET:1252",
		"COMPRESSION:NONE",
		"OLDFILEUID:NONE",
		"NEWFILEUID:NONE",
		"",
	}, "\n")
	assert.Equal(t, expected, header)

	// exactly the 9 fields, in canonical order
	lines := strings.Split(strings.TrimSuffix(header, "\n"), "\n")
	require.Len(t, lines, len(V1HeaderFields))
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, V1HeaderFields[i]+":"), "line %q should carry field %s", line, V1HeaderFields[i])
	}
}

func TestRenderHeaderV2(t *testing.T) {
	header, err := RenderHeader("203")
	require.NoError(t, err)
	expected := `<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n" +
		`<?OFX OFXHEADER="200" VERSION="203" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>` + "\n"
	assert.Equal(t, expected, header)
	for _, field := range V2HeaderFields {
		assert.Contains(t, header, field+`="`)
	}
}

func TestRenderHeaderVersionSubstitution(t *testing.T) {
	for _, version := range []string{"102", "103", "203", "211"} {
		header, err := RenderHeader(version)
		require.NoError(t, err)
		assert.Contains(t, header, version)
	}
}

func TestRenderHeaderUnsupportedVersion(t *testing.T) {
	for _, version := range []string{"", "302", "999", "x02"} {
		_, err := RenderHeader(version)
		assert.Error(t, err, "version %q", version)
	}
}

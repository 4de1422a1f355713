package ofx

import (
	"github.com/pkg/errors"
)

// Generation identifies which generation of the OFX spec a document's
// header and body syntax follow
type Generation int

const (
	// Gen1 is the SGML-like OFX 1.x family: colon-delimited headers and unclosed body tags
	Gen1 Generation = iota + 1
	// Gen2 is the XML-like OFX 2.x family: an XML prolog header and well-formed body tags
	Gen2
)

// ParseGeneration derives the spec generation from an OFX version string,
// e.g. "102" or "203". Only the leading digit matters: servers in the wild
// report plenty of version numbers the spec never blessed.
func ParseGeneration(version string) (Generation, error) {
	if version == "" {
		return 0, errors.New("Unsupported OFX version: empty version string")
	}
	switch version[0] {
	case '1':
		return Gen1, nil
	case '2':
		return Gen2, nil
	default:
		return 0, errors.Errorf("Unsupported OFX version: %q", version)
	}
}

func (g Generation) String() string {
	switch g {
	case Gen1:
		return "OFX 1.x"
	case Gen2:
		return "OFX 2.x"
	default:
		return "unknown"
	}
}

// ContentType returns the content type declared for documents of this
// generation. The body tag syntax differs, so the declared type does too.
func (g Generation) ContentType() string {
	if g == Gen2 {
		return "text/xml"
	}
	return "text/sgml"
}

package ofx

import (
	"strings"
	"unicode/utf8"

	"github.com/johnstarich/go/regext"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Header parse failures, distinguishable with errors.Cause
var (
	// ErrMissingVersion means a header was recognized but carried no VERSION field
	ErrMissingVersion = errors.New("Parse error: no version in OFX header")
	// ErrMalformedV2Header means a v2 marker was found but the processing instruction didn't match its required shape
	ErrMalformedV2Header = errors.New("Parse error: malformed OFX v2 header")
	// ErrUnrecognizedHeader means neither generation's header marker was found
	ErrUnrecognizedHeader = errors.New("Parse error: unrecognized OFX header")
)

const (
	v1HeaderMarker  = "OFXHEADER"
	v2HeaderMarker  = "<?OFX OFXHEADER"
	bodyStartMarker = "<OFX>"

	// Longest plausible v1 header line, e.g. "OFXHEADER:100". Anything
	// longer means the header region ended and the body began.
	maxV1HeaderLineLen = 13
)

var v2HeaderPattern = regext.MustCompile(`
	<\?OFX \s+
	OFXHEADER="(?P<OFXHEADER>\d+)"    \s+
	VERSION="(?P<VERSION>\d+)"        \s+
	SECURITY="(?P<SECURITY>\w+)"      \s+
	OLDFILEUID="(?P<OLDFILEUID>\w+)"  \s+
	NEWFILEUID="(?P<NEWFILEUID>\w+)"
	\?>
`)

// File is an OFX document or response with its header parsed out.
// Read-only after construction. The body is left untouched.
type File struct {
	Generation Generation
	Header     Header
	// Text is the newline-normalized document text
	Text string
}

// IsResponse reports whether text looks like an OFX response: either
// generation's header marker counts. CLI pass/fail reporting relies on
// this exact classification.
func IsResponse(text string) bool {
	return strings.HasPrefix(text, v1HeaderMarker) || strings.Contains(text, v2HeaderMarker)
}

// ParseFile parses the OFX header out of raw document text, detecting
// which generation's framing is present
func ParseFile(text string) (*File, error) {
	// Network newlines to unix newlines, before any detection
	text = strings.Replace(text, "\r\n", "\n", -1)

	switch {
	case strings.HasPrefix(text, v1HeaderMarker):
		header, err := parseV1Header(text)
		if err != nil {
			return nil, err
		}
		return &File{Generation: Gen1, Header: header, Text: text}, nil
	case strings.Contains(text, v2HeaderMarker):
		header, err := parseV2Header(text)
		if err != nil {
			return nil, err
		}
		return &File{Generation: Gen2, Header: header, Text: text}, nil
	default:
		return nil, errors.Wrapf(ErrUnrecognizedHeader, "near %q", snippet(text))
	}
}

// ParseBytes parses raw response bytes, first decoding Windows-1252 if the
// bytes aren't valid UTF-8. OFX v1 documents declare CHARSET:1252.
func ParseBytes(b []byte) (*File, error) {
	if !utf8.Valid(b) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to decode Windows-1252 text")
		}
		b = decoded
	}
	return ParseFile(string(b))
}

func parseV1Header(text string) (Header, error) {
	header := make(Header)
	for _, line := range strings.Split(text, "\n") {
		if line == "" || strings.HasPrefix(line, bodyStartMarker) || len(line) > maxV1HeaderLineLen {
			break
		}
		pair := strings.SplitN(line, ":", 2)
		if len(pair) != 2 {
			// colonless line: header region ended
			break
		}
		header[pair[0]] = pair[1]
	}
	if _, ok := header.Version(); !ok {
		return nil, errors.Wrapf(ErrMissingVersion, "near %q", snippet(text))
	}
	return header, nil
}

func parseV2Header(text string) (Header, error) {
	match := v2HeaderPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, errors.Wrapf(ErrMalformedV2Header, "near %q", snippet(text))
	}
	header := make(Header)
	for i, name := range v2HeaderPattern.SubexpNames() {
		if name != "" {
			header[name] = match[i]
		}
	}
	// defensive: the pattern already requires VERSION
	if _, ok := header.Version(); !ok {
		return nil, errors.Wrapf(ErrMissingVersion, "near %q", snippet(text))
	}
	return header, nil
}

func snippet(text string) string {
	const maxLen = 40
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}

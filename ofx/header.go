package ofx

import "fmt"

// Header field names shared by both generations
const (
	FieldOFXHeader   = "OFXHEADER"
	FieldData        = "DATA"
	FieldVersion     = "VERSION"
	FieldSecurity    = "SECURITY"
	FieldEncoding    = "ENCODING"
	FieldCharset     = "CHARSET"
	FieldCompression = "COMPRESSION"
	FieldOldFileUID  = "OLDFILEUID"
	FieldNewFileUID  = "NEWFILEUID"
)

// V1HeaderFields lists the version 1 header fields in their required order
var V1HeaderFields = []string{
	FieldOFXHeader,
	FieldData,
	FieldVersion,
	FieldSecurity,
	FieldEncoding,
	FieldCharset,
	FieldCompression,
	FieldOldFileUID,
	FieldNewFileUID,
}

// V2HeaderFields lists the version 2 header fields in their required order
var V2HeaderFields = []string{
	FieldOFXHeader,
	FieldVersion,
	FieldSecurity,
	FieldOldFileUID,
	FieldNewFileUID,
}

// Header holds the parsed or rendered OFX header fields. Field order on the
// wire is fixed by V1HeaderFields / V2HeaderFields.
type Header map[string]string

// Version returns the VERSION header field, if present
func (h Header) Version() (string, bool) {
	version, ok := h[FieldVersion]
	return version, ok
}

const v1HeaderFormat = `OFXHEADER:100
DATA:OFXSGML
VERSION:%s
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE
`

const v2HeaderFormat = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="%s" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
`

// RenderHeader renders the literal OFX header block for the given version
// string. The field order and "NONE" literals are contractual: consumers
// compare them byte for byte.
func RenderHeader(version string) (string, error) {
	generation, err := ParseGeneration(version)
	if err != nil {
		return "", err
	}
	if generation == Gen2 {
		return fmt.Sprintf(v2HeaderFormat, version), nil
	}
	return fmt.Sprintf(v1HeaderFormat, version), nil
}

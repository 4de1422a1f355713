package ofx

import (
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/pkg/errors"
)

// Fixed anonymous signon values from the OFX spec's anonymous user pattern
const (
	anonymousCredential = "anonymous00000000000000000000000"
	signonAppID         = "QWIN"
	signonAppVersion    = "2700"
	signonLanguage      = "ENG"

	// DTPROFUP/DTACCTUP far enough back to request full history
	epochDate = "19900101"
)

// ErrUnknownRequest is returned when a request kind isn't one of the
// supported probes
var ErrUnknownRequest = errors.New("Unknown OFX request kind")

// RequestKind names a predefined probe request
type RequestKind string

// All supported probe requests
const (
	KindGetRoot  RequestKind = "GET /"
	KindGetPath  RequestKind = "GET OFX Path"
	KindPostPath RequestKind = "POST OFX Path"
	KindEmpty    RequestKind = "OFX Empty"
	KindProfile  RequestKind = "OFX PROFILE"
	KindAcctInfo RequestKind = "OFX ACCTINFO"
	KindInvStmt  RequestKind = "OFX INVSTMT"
)

// Kinds lists every supported request kind in probe order
var Kinds = []RequestKind{
	KindGetRoot,
	KindGetPath,
	KindPostPath,
	KindEmpty,
	KindProfile,
	KindAcctInfo,
}

// Method returns the HTTP method bound to this request kind
func (k RequestKind) Method() (string, error) {
	switch k {
	case KindGetRoot, KindGetPath:
		return "GET", nil
	case KindPostPath, KindEmpty, KindProfile, KindAcctInfo, KindInvStmt:
		return "POST", nil
	default:
		return "", errors.Wrapf(ErrUnknownRequest, "%q", string(k))
	}
}

// Builder renders complete OFX request documents for one protocol version.
// Now and NewUID are the only impure inputs and may be replaced for
// deterministic output.
type Builder struct {
	Version    string
	Generation Generation

	Now    func() time.Time
	NewUID func() (string, error)

	header string
}

// NewBuilder creates a Builder for the given OFX version string,
// e.g. "102" or "203"
func NewBuilder(version string) (*Builder, error) {
	generation, err := ParseGeneration(version)
	if err != nil {
		return nil, err
	}
	header, err := RenderHeader(version)
	if err != nil {
		return nil, err
	}
	return &Builder{
		Version:    version,
		Generation: generation,
		Now:        time.Now,
		NewUID:     randomUID,
		header:     header,
	}, nil
}

func randomUID() (string, error) {
	uid, err := ofxgo.RandomUID()
	if err != nil {
		return "", errors.Wrap(err, "Failed to generate transaction UID")
	}
	return strings.ToUpper(string(*uid)), nil
}

// Header returns the rendered OFX header block for this builder's version
func (b *Builder) Header() string {
	return b.header
}

// ContentType returns the content type to declare for this builder's documents
func (b *Builder) ContentType() string {
	return b.Generation.ContentType()
}

// tagFunc renders one leaf element. Selected once per document so v1 and
// v2 markup can't diverge between fragments.
type tagFunc func(name, value string) string

func (g Generation) tag() tagFunc {
	if g == Gen2 {
		return func(name, value string) string {
			return "<" + name + ">" + value + "</" + name + ">\n"
		}
	}
	// v1 SGML-style: no closing tag, implicit closure at the next tag
	return func(name, value string) string {
		return "<" + name + ">" + value + "\n"
	}
}

func (b *Builder) clientTime() string {
	// Example: 20170616141327.123[-7:MST]
	// The zone annotation is a fixed literal, not real zone math.
	return b.Now().Format("20060102150405") + ".123[-7:MST]"
}

// signonFragment renders the anonymous SIGNONMSGSRQV1 fragment. The <FI>
// block is included only when a server instance is supplied.
func (b *Builder) signonFragment(si *ServerInstance) string {
	tag := b.Generation.tag()
	var s strings.Builder
	s.WriteString("<SIGNONMSGSRQV1>\n<SONRQ>\n")
	s.WriteString(tag("DTCLIENT", b.clientTime()))
	s.WriteString(tag("USERID", anonymousCredential))
	s.WriteString(tag("USERPASS", anonymousCredential))
	s.WriteString(tag("GENUSERKEY", "N"))
	s.WriteString(tag("LANGUAGE", signonLanguage))
	if si != nil && (si.FID != "" || si.Org != "") {
		s.WriteString("<FI>\n")
		s.WriteString(tag("ORG", si.Org))
		s.WriteString(tag("FID", si.FID))
		s.WriteString("</FI>\n")
	}
	s.WriteString(tag("APPID", signonAppID))
	s.WriteString(tag("APPVER", signonAppVersion))
	s.WriteString("</SONRQ>\n</SIGNONMSGSRQV1>")
	return s.String()
}

// document assembles header + blank line + body
func (b *Builder) document(body string) string {
	return b.header + "\n" + body
}

// EmptyRequest renders a bare <OFX></OFX> envelope, used to probe how an
// endpoint reacts to a contentless request
func (b *Builder) EmptyRequest() string {
	return b.document("<OFX>\n</OFX>\n")
}

// ProfileRequest renders a PROFRQ document requesting the server's full
// message-set profile
func (b *Builder) ProfileRequest(si *ServerInstance) (string, error) {
	uid, err := b.NewUID()
	if err != nil {
		return "", err
	}
	tag := b.Generation.tag()
	var s strings.Builder
	s.WriteString("<OFX>\n")
	s.WriteString(b.signonFragment(si))
	s.WriteString("\n<PROFMSGSRQV1>\n<PROFTRNRQ>\n")
	s.WriteString(tag("TRNUID", uid))
	s.WriteString("<PROFRQ>\n")
	s.WriteString(tag("CLIENTROUTING", "MSGSET"))
	s.WriteString(tag("DTPROFUP", epochDate))
	s.WriteString("</PROFRQ>\n</PROFTRNRQ>\n</PROFMSGSRQV1>\n</OFX>\n")
	return b.document(s.String()), nil
}

// AcctInfoRequest renders an ACCTINFORQ document requesting the full
// account list
func (b *Builder) AcctInfoRequest(si *ServerInstance) (string, error) {
	uid, err := b.NewUID()
	if err != nil {
		return "", err
	}
	tag := b.Generation.tag()
	var s strings.Builder
	s.WriteString("<OFX>\n")
	s.WriteString(b.signonFragment(si))
	s.WriteString("\n<SIGNUPMSGSRQV1>\n<ACCTINFOTRNRQ>\n")
	s.WriteString(tag("TRNUID", uid))
	s.WriteString("<ACCTINFORQ>\n")
	s.WriteString(tag("DTACCTUP", epochDate))
	s.WriteString("</ACCTINFORQ>\n</ACCTINFOTRNRQ>\n</SIGNUPMSGSRQV1>\n</OFX>\n")
	return b.document(s.String()), nil
}

// InvestmentStatementRequest renders an INVSTMTRQ document for the given
// brokerage account, requesting transactions, open orders, positions and
// balances
func (b *Builder) InvestmentStatementRequest(si *ServerInstance, brokerID, acctID string) (string, error) {
	uid, err := b.NewUID()
	if err != nil {
		return "", err
	}
	tag := b.Generation.tag()
	var s strings.Builder
	s.WriteString("<OFX>\n")
	s.WriteString(b.signonFragment(si))
	s.WriteString("\n<INVSTMTMSGSRQV1>\n<INVSTMTTRNRQ>\n")
	s.WriteString(tag("TRNUID", uid))
	s.WriteString("<INVSTMTRQ>\n<INVACCTFROM>\n")
	s.WriteString(tag("BROKERID", brokerID))
	s.WriteString(tag("ACCTID", acctID))
	s.WriteString("</INVACCTFROM>\n<INCTRAN>\n")
	s.WriteString(tag("INCLUDE", "Y"))
	s.WriteString("</INCTRAN>\n")
	s.WriteString(tag("INCOO", "Y"))
	s.WriteString("<INCPOS>\n")
	s.WriteString(tag("INCLUDE", "Y"))
	s.WriteString("</INCPOS>\n")
	s.WriteString(tag("INCBAL", "Y"))
	s.WriteString("</INVSTMTRQ>\n</INVSTMTTRNRQ>\n</INVSTMTMSGSRQV1>\n</OFX>\n")
	return b.document(s.String()), nil
}

// Payload renders the request body for the given kind. GET probes and the
// bare POST probe carry no body.
func (b *Builder) Payload(kind RequestKind, si *ServerInstance) (string, error) {
	switch kind {
	case KindGetRoot, KindGetPath, KindPostPath:
		return "", nil
	case KindEmpty:
		return b.EmptyRequest(), nil
	case KindProfile:
		return b.ProfileRequest(si)
	case KindAcctInfo:
		return b.AcctInfoRequest(si)
	case KindInvStmt:
		return "", errors.New("Investment statement requests need a broker and account ID, use InvestmentStatementRequest")
	default:
		return "", errors.Wrapf(ErrUnknownRequest, "%q", string(kind))
	}
}

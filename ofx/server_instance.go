package ofx

import (
	"net/url"

	sErrors "github.com/johnstarich/ofxprobe/errors"
	"github.com/pkg/errors"
)

// ServerInstance identifies one OFX endpoint under test. Callers construct
// it once per server and the probe never mutates it.
type ServerInstance struct {
	URL string
	FID string
	Org string
}

// ValidateServer checks a server instance for probe-ability
func ValidateServer(si *ServerInstance) error {
	var errs sErrors.Errors
	if errs.ErrIf(si == nil, "Server instance must not be empty") {
		return errs.ErrOrNil()
	}
	if !errs.ErrIf(si.URL == "", "Server URL must not be empty") {
		u, err := url.Parse(si.URL)
		if err != nil {
			errs.AddErr(errors.Wrap(err, "Server URL is malformed"))
		} else {
			errs.ErrIf(u.Scheme != "https" && u.Hostname() != "localhost", "Server URL is required to use HTTPS")
		}
	}
	return errs.ErrOrNil()
}

// Package server implements a mock OFX endpoint for exercising the probe
// end to end: it parses incoming request headers and answers with a canned
// anonymous signon response in the matching generation.
package server

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/johnstarich/ofxprobe/ofx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const v1SignonResponse = `<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>%s
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
</OFX>
`

const v2SignonResponse = `<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0</CODE>
<SEVERITY>INFO</SEVERITY>
</STATUS>
<DTSERVER>%s</DTSERVER>
<LANGUAGE>ENG</LANGUAGE>
</SONRS>
</SIGNONMSGSRSV1>
</OFX>
`

// Run starts the mock endpoint on addr and blocks
func Run(addr string, logger *zap.Logger) error {
	engine := newEngine(logger)
	return errors.Wrap(engine.Run(addr), "Mock OFX server failed")
}

func newEngine(logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(
		ginzap.Ginzap(logger, time.RFC3339, true),
		recovery(logger, true),
	)
	engine.GET("/", diagnostic)
	engine.GET("/ofx", diagnostic)
	engine.POST("/ofx", serveOFX(logger, time.Now))
	return engine
}

func diagnostic(c *gin.Context) {
	c.String(http.StatusOK, "mockofx: OFX test endpoint. POST OFX requests to /ofx.\n")
}

func serveOFX(logger *zap.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := ioutil.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusInternalServerError, "Failed to read request body\n")
			return
		}
		file, err := ofx.ParseBytes(body)
		if err != nil {
			logger.Warn("Rejecting non-OFX request", zap.Error(err))
			c.String(http.StatusBadRequest, "Not an OFX request: %s\n", err.Error())
			return
		}
		version, _ := file.Header.Version()
		document, err := signonResponse(file.Generation, version, now())
		if err != nil {
			logger.Error("Failed to render response", zap.String("version", version), zap.Error(err))
			c.String(http.StatusInternalServerError, "Failed to render OFX response\n")
			return
		}
		c.Header("Content-Type", file.Generation.ContentType())
		c.String(http.StatusOK, document)
	}
}

// signonResponse renders a successful anonymous signon response in the same
// generation as the request
func signonResponse(generation ofx.Generation, version string, now time.Time) (string, error) {
	header, err := ofx.RenderHeader(version)
	if err != nil {
		return "", err
	}
	bodyFormat := v1SignonResponse
	if generation == ofx.Gen2 {
		bodyFormat = v2SignonResponse
	}
	dtServer := now.Format("20060102150405")
	return header + "\n" + fmt.Sprintf(bodyFormat, dtServer), nil
}

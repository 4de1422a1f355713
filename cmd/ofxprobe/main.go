package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/johnstarich/ofxprobe/client"
	"github.com/johnstarich/ofxprobe/ofx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func usage(flagSet *flag.FlagSet) string {
	oldOutput := flagSet.Output()
	buf := bytes.NewBuffer(nil)
	flagSet.SetOutput(buf)
	flagSet.Usage()
	flagSet.SetOutput(oldOutput)
	return buf.String()
}

func requireFlags(flagSet *flag.FlagSet) (err error) {
	setFlags := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	var missingFlags []string
	flagSet.VisitAll(func(f *flag.Flag) {
		if strings.HasPrefix(f.Usage, "Required: ") && !setFlags[f.Name] {
			missingFlags = append(missingFlags, f.Name)
		}
	})
	if len(missingFlags) > 0 {
		return errors.Errorf("Missing required flags: %s", missingFlags)
	}
	return nil
}

func handleErrors() (usageErr bool, err error) {
	flagSet := flag.NewFlagSet("ofxprobe", flag.ContinueOnError)
	ofxURL := flagSet.String("url", "", "Required: OFX endpoint URL to probe")
	fid := flagSet.String("fid", "", "Financial institution ID for the signon <FI> block")
	org := flagSet.String("org", "", "Organization name for the signon <FI> block")
	version := flagSet.String("ofx-version", "102", "OFX version to speak, e.g. 102 or 203")
	requestName := flagSet.String("request", string(ofx.KindProfile), "Request to send, one of: "+kindNames())
	brokerID := flagSet.String("broker", "", "Broker ID: sends an investment statement request instead of -request")
	acctID := flagSet.String("acct", "", "Account ID for the investment statement request")
	wait := flagSet.Duration("wait", 0, "How long to back off after a read timeout")
	useCache := flagSet.Bool("cache", false, "Cache successful responses by URL for this run")
	insecure := flagSet.Bool("insecure", false, "Skip TLS certificate verification")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return true, err
	}
	if err := requireFlags(flagSet); err != nil {
		return true, errors.Errorf("%s\n%s", err.Error(), usage(flagSet))
	}

	logger, err := newLogger()
	if err != nil {
		return false, err
	}

	si := &ofx.ServerInstance{URL: *ofxURL, FID: *fid, Org: *org}
	if err := ofx.ValidateServer(si); err != nil {
		return true, err
	}

	c := client.New(client.Config{
		Wait:     *wait,
		UseCache: *useCache,
	}, logger)
	return false, probe(os.Stdout, c, si, *version, ofx.RequestKind(*requestName), *brokerID, *acctID, !*insecure)
}

func kindNames() string {
	names := make([]string, 0, len(ofx.Kinds))
	for _, kind := range ofx.Kinds {
		names = append(names, fmt.Sprintf("%q", string(kind)))
	}
	return strings.Join(names, ", ")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEVELOPMENT") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func probe(w io.Writer, c *client.Client, si *ofx.ServerInstance, version string, kind ofx.RequestKind, brokerID, acctID string, tlsVerify bool) error {
	builder, err := ofx.NewBuilder(version)
	if err != nil {
		return err
	}

	callURL := si.URL
	if brokerID != "" || acctID != "" {
		kind = ofx.KindInvStmt
	}
	method, err := kind.Method()
	if err != nil {
		return err
	}
	var body string
	switch kind {
	case ofx.KindInvStmt:
		body, err = builder.InvestmentStatementRequest(si, brokerID, acctID)
	case ofx.KindGetRoot:
		callURL, err = rootURL(si.URL)
	default:
		body, err = builder.Payload(kind, si)
	}
	if err != nil {
		return err
	}

	response, wasCached, err := c.Call(callURL, method, body, tlsVerify)
	if err != nil {
		return err
	}
	printResponse(w, callURL, method, body, response, wasCached)
	reportOFX(w, response.Body)
	return nil
}

// rootURL strips an OFX URL down to its server root for the "GET /" probe
func rootURL(ofxURL string) (string, error) {
	u, err := url.Parse(ofxURL)
	if err != nil {
		return "", errors.Wrap(err, "Server URL is malformed")
	}
	u.Path = "/"
	u.RawQuery = ""
	return u.String(), nil
}

func printResponse(w io.Writer, callURL, method, requestBody string, response *client.Response, wasCached bool) {
	fmt.Fprintln(w, "=== Request ===")
	fmt.Fprintln(w, method, callURL)
	if wasCached {
		fmt.Fprintln(w, "(answered from cache)")
	}
	if requestBody != "" {
		fmt.Fprintln(w, "=== Request Body ===")
		fmt.Fprintln(w, requestBody)
	}
	fmt.Fprintln(w, "=== Response Status ===")
	fmt.Fprintln(w, response.Status)
	fmt.Fprintln(w, "=== Response Headers ===")
	for name, values := range response.Header {
		fmt.Fprintf(w, "%s: %s\n", name, strings.Join(values, ", "))
	}
	fmt.Fprintln(w, "=== Response Body ===")
	fmt.Fprintln(w, response.Body)
}

// reportOFX classifies the response body and, when it's OFX, dumps the
// parsed header fields in canonical order
func reportOFX(w io.Writer, body string) {
	if !ofx.IsResponse(body) {
		fmt.Fprintln(w, "Response is not OFX")
		return
	}
	file, err := ofx.ParseFile(body)
	if err != nil {
		fmt.Fprintln(w, "Failed to parse OFX header:", err.Error())
		return
	}
	fmt.Fprintln(w, "=== OFX Header ===")
	fmt.Fprintln(w, "Generation:", file.Generation.String())
	fields := ofx.V1HeaderFields
	if file.Generation == ofx.Gen2 {
		fields = ofx.V2HeaderFields
	}
	for _, field := range fields {
		if value, ok := file.Header[field]; ok {
			fmt.Fprintf(w, "%s: %s\n", field, value)
		}
	}
}

func main() {
	usageErr, err := handleErrors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if usageErr {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

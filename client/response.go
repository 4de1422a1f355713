package client

import (
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

// Response is a fully-read HTTP exchange result. Value object: the body is
// captured as a string so cached entries can't be consumed twice.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
}

func newResponse(httpResponse *http.Response) (*Response, error) {
	defer httpResponse.Body.Close()
	body, err := ioutil.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read response body")
	}
	return &Response{
		StatusCode: httpResponse.StatusCode,
		Status:     httpResponse.Status,
		Header:     httpResponse.Header,
		Body:       string(body),
	}, nil
}

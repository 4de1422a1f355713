package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Impersonates a PFM application: some servers answer only known clients
const (
	// UserAgent is sent on every call
	UserAgent = "InetClntApp/3.0"
	// ContentType is declared on every POST body
	ContentType = "application/x-ofx"
)

// Original client defaults: 3.2s to connect, 27s to answer
const (
	DefaultConnectTimeout = 3200 * time.Millisecond
	DefaultReadTimeout    = 27 * time.Second
)

// Config tunes a Client. The zero value gets the default timeouts, no
// backoff, no rate limiting, and success caching off.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// Wait is slept after a read timeout before returning, giving slow
	// servers a breather before the caller decides whether to retry
	Wait time.Duration
	// RequestInterval is the minimum spacing between calls to one URL
	RequestInterval time.Duration
	// UseCache caches successful responses by URL
	UseCache bool
}

type cacheEntry struct {
	response *Response
	err      error
}

// Client issues OFX probe calls with fixed timeouts and an in-memory
// response cache.
//
// The cache is keyed by URL only: two calls to the same URL with different
// methods or bodies share one entry, first response wins. Callers sending
// differing payloads to one URL must account for this.
type Client struct {
	config           Config
	cache            *cache.Cache
	logger           *zap.Logger
	secure, insecure *http.Client
	limiters         map[string]*rate.Limiter
	networkCalls     *atomic.Int64
	sleep            func(time.Duration)
}

// New creates a Client. The cache lives and dies with the Client: create
// one per probing run.
func New(config Config, logger *zap.Logger) *Client {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	return &Client{
		config:       config,
		cache:        cache.New(cache.NoExpiration, 0),
		logger:       logger,
		secure:       newHTTPClient(config, true),
		insecure:     newHTTPClient(config, false),
		limiters:     make(map[string]*rate.Limiter),
		networkCalls: atomic.NewInt64(0),
		sleep:        time.Sleep,
	}
}

func newHTTPClient(config Config, tlsVerify bool) *http.Client {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: config.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   config.ConnectTimeout,
		ResponseHeaderTimeout: config.ReadTimeout,
	}
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // nolint:gosec // probing misconfigured servers requires skipping verification on request
	}
	return &http.Client{Transport: transport}
}

// NetworkCalls returns how many calls actually hit the network, as opposed
// to being answered from cache
func (c *Client) NetworkCalls() int64 {
	return c.networkCalls.Load()
}

// Call issues a single HTTP exchange against url, answering from cache when
// possible. Returns the response (nil if none was obtained) and whether it
// came from the cache.
//
// Connection failures are always cached as an explicit no-result entry so a
// batch run never re-dials a dead endpoint. Read timeouts are returned
// uncached after an optional backoff; retrying is the caller's decision.
func (c *Client) Call(callURL, method, body string, tlsVerify bool) (*Response, bool, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, false, errors.Errorf("Method must be %q or %q, got %q", http.MethodGet, http.MethodPost, method)
	}

	if entry, found := c.cache.Get(callURL); found {
		cached := entry.(cacheEntry)
		return cached.response, true, cached.err
	}

	response, err := c.doCall(callURL, method, body, tlsVerify)
	switch err := err.(type) {
	case nil:
	case *TimeoutError:
		if c.config.Wait > 0 {
			c.logger.Debug("Read timed out, backing off", zap.String("url", callURL), zap.Duration("wait", c.config.Wait))
			c.sleep(c.config.Wait)
		}
		return nil, false, err
	case *ConnectionError:
		c.logger.Debug("Connection failed, caching no-result", zap.String("url", callURL), zap.Error(err))
		c.cache.SetDefault(callURL, cacheEntry{err: err})
		return nil, false, err
	default:
		return nil, false, err
	}

	if c.config.UseCache {
		c.cache.SetDefault(callURL, cacheEntry{response: response})
	}
	return response, false, nil
}

func (c *Client) doCall(callURL, method, body string, tlsVerify bool) (*Response, error) {
	request, err := http.NewRequest(method, callURL, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid request for %s", callURL)
	}
	request.Header.Set("User-Agent", UserAgent)
	if method == http.MethodPost {
		request.Header.Set("Content-Type", ContentType)
	}

	reservation := c.limiterFor(callURL).Reserve()
	if !reservation.OK() {
		return nil, errors.New("Cannot satisfy rate limiter burst condition")
	}
	delay := reservation.Delay()
	if delay > 0 {
		c.logger.Debug("Rate limiting", zap.String("url", callURL), zap.Duration("delay", delay))
		c.sleep(delay)
	}

	c.networkCalls.Inc()
	if ce := c.logger.Check(zap.DebugLevel, "Sending request"); ce != nil {
		ce.Write(zap.String("url", callURL), zap.String("method", method), zap.String("body", body))
	}

	httpClient := c.secure
	if !tlsVerify {
		httpClient = c.insecure
	}
	httpResponse, err := httpClient.Do(request)
	if err != nil {
		return nil, classifyCallError(callURL, err)
	}
	response, err := newResponse(httpResponse)
	if err != nil {
		// a body read cut short by the server counts as a transport failure too
		return nil, classifyCallError(callURL, errors.Cause(err))
	}
	if ce := c.logger.Check(zap.DebugLevel, "Received response"); ce != nil {
		ce.Write(zap.String("url", callURL), zap.String("status", response.Status), zap.String("body", response.Body))
	}
	return response, nil
}

func (c *Client) limiterFor(callURL string) *rate.Limiter {
	if c.config.RequestInterval <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	callURL = strings.Trim(callURL, "/")
	if limiter, ok := c.limiters[callURL]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(c.config.RequestInterval), 1)
	c.limiters[callURL] = limiter
	return limiter
}

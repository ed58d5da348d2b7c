package quote

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"stocks-trader/logging"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

type options struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// Option configures an upstream client.
type Option func(*options)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) Option {
	return func(o *options) {
		if requestsPerSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithHTTPTimeout sets the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.httpClient.Timeout = timeout
	}
}

func newOptions(baseURL string, opts []Option) *options {
	o := &options{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewSilent(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

package escore

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/thammadi/escore/internal/eslog"
)

// Defaults mirrored from spec §6's configuration surface.
const (
	DefaultPingTimeout    = 2 * time.Second
	DefaultRequestTimeout = 60 * time.Second
)

// Config is the functional-option configuration surface, generalizing the
// teacher's SetURL/SetSniff/SetHealthcheck/... option pattern to the knobs
// enumerated in spec §6.
type Config struct {
	URLs []string

	PoolKind PoolKind

	MaxRetries     *int
	MaxRetryTimeout time.Duration

	SniffOnStartup         bool
	SniffOnConnectionFault bool
	SniffLifeSpan          time.Duration
	SniffTimeout           time.Duration

	PingEnabled *bool
	PingTimeout time.Duration

	RequestTimeout time.Duration

	DeadTimeout    time.Duration
	MaxDeadTimeout time.Duration

	DisableDirectStreaming            bool
	SkipDeserializationForStatusCodes IntSet

	BasicAuthUsername string
	BasicAuthPassword string
	BasicAuth         bool

	HTTPClient   *http.Client
	RoundTripper http.RoundTripper

	Logger  eslog.Logger
	Serializer Serializer

	OnRequestDataCreated func(*RequestData)
	OnRequestCompleted   func(*HttpDetails)

	Metrics      Metrics
	NodeLiveness NodeLivenessObserver
}

// Option mutates a Config being built by NewConfig.
type Option func(*Config)

// NewConfig applies opts over a Config seeded with spec-mandated defaults.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		PoolKind:               SniffingPool,
		SniffOnStartup:         true,
		SniffOnConnectionFault: true,
		PingTimeout:            DefaultPingTimeout,
		RequestTimeout:         DefaultRequestTimeout,
		DeadTimeout:            DefaultDeadTimeout,
		MaxDeadTimeout:         DefaultMaxDeadTimeout,
		Serializer:             JSONSerializer{},
		Logger:                 noopLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithURL sets the initial seed node URLs.
func WithURL(urls ...string) Option {
	return func(c *Config) { c.URLs = append(c.URLs, urls...) }
}

// WithPoolKind overrides the default sniffing pool.
func WithPoolKind(kind PoolKind) Option {
	return func(c *Config) { c.PoolKind = kind }
}

// WithSniff toggles sniffing on startup and on connection fault together,
// mirroring the teacher's single SetSniff(bool) knob.
func WithSniff(enabled bool) Option {
	return func(c *Config) {
		c.SniffOnStartup = enabled
		c.SniffOnConnectionFault = enabled
		if !enabled {
			c.PoolKind = StaticPool
		}
	}
}

// WithSniffLifeSpan enables sniff-on-stale with the given interval.
func WithSniffLifeSpan(d time.Duration) Option {
	return func(c *Config) { c.SniffLifeSpan = d }
}

// WithPing explicitly enables/disables pinging, overriding DefaultPingEnabled.
func WithPing(enabled bool) Option {
	return func(c *Config) { c.PingEnabled = &enabled }
}

// WithMaxRetries overrides the retry budget (default: liveNodeCount-1).
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = &n }
}

// WithMaxRetryTimeout caps the wall-clock duration of the whole outer loop.
func WithMaxRetryTimeout(d time.Duration) Option {
	return func(c *Config) { c.MaxRetryTimeout = d }
}

// WithRequestTimeout sets the per-attempt HTTP timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithPingTimeout sets the per-attempt ping timeout.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Config) { c.PingTimeout = d }
}

// WithDeadTimeouts overrides the exponential-backoff bounds for node revival.
func WithDeadTimeouts(base, max time.Duration) Option {
	return func(c *Config) { c.DeadTimeout = base; c.MaxDeadTimeout = max }
}

// WithBasicAuth sets HTTP basic-auth credentials attached to every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Config) { c.BasicAuth = true; c.BasicAuthUsername = username; c.BasicAuthPassword = password }
}

// WithHTTPClient overrides the *http.Client used by the default HTTPTransport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithRoundTripper overrides just the transport of the default http.Client.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *Config) { c.RoundTripper = rt }
}

// WithDisableDirectStreaming forces body buffering for every response.
func WithDisableDirectStreaming(disable bool) Option {
	return func(c *Config) { c.DisableDirectStreaming = disable }
}

// WithSkipDeserializationForStatusCodes sets the codes for which a typed
// response's body is left nil rather than deserialized.
func WithSkipDeserializationForStatusCodes(codes ...int) Option {
	return func(c *Config) { c.SkipDeserializationForStatusCodes = NewIntSet(codes...) }
}

// WithLogger wires a structured logger; defaults to a discard logger.
func WithLogger(log eslog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithSerializer overrides the default JSON serializer.
func WithSerializer(s Serializer) Option {
	return func(c *Config) { c.Serializer = s }
}

// WithRequestDataCreated registers the onRequestDataCreated callback.
func WithRequestDataCreated(fn func(*RequestData)) Option {
	return func(c *Config) { c.OnRequestDataCreated = fn }
}

// WithRequestCompleted registers the onRequestCompleted callback.
func WithRequestCompleted(fn func(*HttpDetails)) Option {
	return func(c *Config) { c.OnRequestCompleted = fn }
}

// WithMetrics wires a Metrics implementation (e.g. esmetrics.Collector) into
// the Transport's per-request instrumentation. Defaults to NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithNodeLiveness wires a NodeLivenessObserver (e.g. esmetrics.NodeGauges)
// into the pool's MarkAlive/MarkDead transitions.
func WithNodeLiveness(o NodeLivenessObserver) Option {
	return func(c *Config) { c.NodeLiveness = o }
}

// Validate rejects nonsensical configuration combinations the way the
// teacher's NewClient returns an error instead of panicking later on a
// negative timer or an empty retry budget.
func (c *Config) Validate() error {
	var result *multierror.Error

	negativeDuration := func(name string, d time.Duration) {
		if d < 0 {
			result = multierror.Append(result, errStringf("escore: %s must not be negative, got %s", name, d))
		}
	}
	negativeDuration("MaxRetryTimeout", c.MaxRetryTimeout)
	negativeDuration("SniffLifeSpan", c.SniffLifeSpan)
	negativeDuration("SniffTimeout", c.SniffTimeout)
	negativeDuration("PingTimeout", c.PingTimeout)
	negativeDuration("RequestTimeout", c.RequestTimeout)
	negativeDuration("DeadTimeout", c.DeadTimeout)
	negativeDuration("MaxDeadTimeout", c.MaxDeadTimeout)

	if c.DeadTimeout > 0 && c.MaxDeadTimeout > 0 && c.DeadTimeout > c.MaxDeadTimeout {
		result = multierror.Append(result, errStringf("escore: DeadTimeout (%s) must not exceed MaxDeadTimeout (%s)", c.DeadTimeout, c.MaxDeadTimeout))
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		result = multierror.Append(result, errStringf("escore: MaxRetries must not be negative, got %d", *c.MaxRetries))
	}
	if c.BasicAuth && c.BasicAuthUsername == "" {
		result = multierror.Append(result, errStringf("escore: BasicAuth enabled with an empty username"))
	}
	if c.Serializer == nil {
		result = multierror.Append(result, errStringf("escore: Serializer must not be nil"))
	}

	return result.ErrorOrNil()
}

// pingEnabled resolves the effective ping-enabled flag against pool kind,
// applying DefaultPingEnabled when the caller did not set WithPing.
func (c *Config) pingEnabled(pool NodePool) bool {
	if c.PingEnabled != nil {
		return *c.PingEnabled
	}
	return DefaultPingEnabled(pool)
}

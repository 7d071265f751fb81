package escore

import (
	"context"
	"net/http"
	"time"
)

// DefaultURL is the address used when no seed URLs are configured,
// matching the teacher's DefaultURL constant.
const DefaultURL = "http://localhost:9200"

// ErrNoClient is returned by NewClient when no node could be reached
// during the bootstrap sniff.
var ErrNoClient = errStringf("escore: no live node found during bootstrap")

// Client is the convenience façade wiring Config -> NodePool -> Sniffer ->
// Pinger -> RequestPipeline -> Transport, mirroring the shape of the
// teacher's Client (conns, healthcheck, sniff, PerformRequest).
type Client struct {
	cfg      *Config
	pool     NodePool
	sniffer  *Sniffer
	pinger   *Pinger
	pipeline *RequestPipeline
	*Transport
}

// NewClient builds a fully wired Client. If sniffing is enabled (the
// default), it performs the bootstrap sniff synchronously and returns
// ErrNoClient if no seed URL yields a usable node.
func NewClient(opts ...Option) (*Client, error) {
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.URLs) == 0 {
		cfg.URLs = []string{DefaultURL}
	}

	seedNodes := make([]*Node, 0, len(cfg.URLs))
	for _, u := range cfg.URLs {
		seedNodes = append(seedNodes, NewNode(u))
	}

	pool := NewNodePool(cfg.PoolKind, seedNodes, cfg.DeadTimeout, cfg.MaxDeadTimeout)
	if cfg.NodeLiveness != nil {
		liveness := cfg.NodeLiveness
		pool.OnTransition(func(alive bool) {
			if alive {
				liveness.RecordRevived()
			} else {
				liveness.RecordDead()
			}
			liveness.SetAlive(countAlive(pool.Nodes()))
		})
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpTransport := NewHTTPRoundTripTransport(httpClient)
	if cfg.RoundTripper != nil {
		httpTransport.Client.Transport = cfg.RoundTripper
	}
	if cfg.BasicAuth {
		httpTransport.BasicAuthUsername = cfg.BasicAuthUsername
		httpTransport.BasicAuthPassword = cfg.BasicAuthPassword
	}

	discoverer := NewHTTPNodeDiscoverer(httpTransport, "")
	sniffer := NewSniffer(pool, discoverer, cfg.SniffLifeSpan, cfg.Logger)
	pinger := NewPinger(httpTransport, cfg.Logger)
	if so, ok := cfg.Metrics.(SniffObserver); ok {
		sniffer.WithMetrics(so)
	}
	if po, ok := cfg.Metrics.(PingObserver); ok {
		pinger.WithMetrics(po)
	}

	pipelineCfg := RequestPipelineConfig{
		SniffOnStartup:         cfg.SniffOnStartup && pool.Sniffable(),
		SniffOnConnectionFault: cfg.SniffOnConnectionFault && pool.Sniffable(),
		PingEnabled:            cfg.pingEnabled(pool),
		MaxRetryTimeout:        cfg.MaxRetryTimeout,
	}
	pipeline := NewRequestPipeline(pool, sniffer, pinger, httpTransport, pipelineCfg, cfg.Logger)

	builder := &ResponseBuilder{BufferFactory: defaultBufferFactory, Serializer: cfg.Serializer}
	transport := NewTransport(pipeline, builder, cfg, cfg.Metrics)

	c := &Client{cfg: cfg, pool: pool, sniffer: sniffer, pinger: pinger, pipeline: pipeline, Transport: transport}

	if pipelineCfg.SniffOnStartup {
		ctx, cancel := context.WithTimeout(context.Background(), sniffStartupTimeout(cfg))
		defer cancel()
		if err := sniffer.SniffOnStartup(ctx, sniffStartupTimeout(cfg)); err != nil {
			return nil, ErrNoClient
		}
	}

	return c, nil
}

func countAlive(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		if node.IsAlive() {
			n++
		}
	}
	return n
}

func sniffStartupTimeout(cfg *Config) time.Duration {
	if cfg.SniffTimeout > 0 {
		return cfg.SniffTimeout
	}
	return DefaultRequestTimeout
}

// Nodes returns a snapshot of the pool's current membership.
func (c *Client) Nodes() []*Node {
	return c.pool.Nodes()
}

// PerformRequest issues one logical request and returns it deserialized
// into a generic map, the way a thin smoke-test caller would use the
// transport without a concrete response type in hand.
func (c *Client) PerformRequest(ctx context.Context, method, path string, body []byte) (*Response[map[string]interface{}], error) {
	data := &RequestData{
		Method:         method,
		Path:           path,
		Body:           body,
		RequestTimeout: c.cfg.RequestTimeout,
		PingTimeout:    c.cfg.PingTimeout,
		SniffTimeout:   sniffStartupTimeout(c.cfg),
		MaxRetries:     c.cfg.MaxRetries,
		DisableDirectStreaming: c.cfg.DisableDirectStreaming,
		SkipDeserializationForStatusCodes: c.cfg.SkipDeserializationForStatusCodes,
	}
	return Perform[map[string]interface{}](c.Transport, ctx, KindTyped, data)
}

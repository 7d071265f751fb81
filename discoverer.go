package escore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// HTTPNodeDiscoverer is the default NodeDiscoverer: it calls a cluster
// membership endpoint on a candidate node and parses the advertised HTTP
// addresses, mirroring the teacher's sniffNode (client_test.go's
// TestClientSniffNode/TestClientSniffOnDefaultURL).
type HTTPNodeDiscoverer struct {
	Transport HTTPTransport
	Path      string
}

// NewHTTPNodeDiscoverer builds a discoverer hitting path (default
// "/_nodes/http") through transport.
func NewHTTPNodeDiscoverer(transport HTTPTransport, path string) *HTTPNodeDiscoverer {
	if path == "" {
		path = "/_nodes/http"
	}
	return &HTTPNodeDiscoverer{Transport: transport, Path: path}
}

type sniffNodesResponse struct {
	ClusterName string                    `json:"cluster_name"`
	Nodes       map[string]sniffNodeEntry `json:"nodes"`
}

type sniffNodeEntry struct {
	Name string `json:"name"`
	HTTP struct {
		PublishAddress string `json:"publish_address"`
	} `json:"http"`
}

func (d *HTTPNodeDiscoverer) DiscoverNodes(ctx context.Context, via *Node, timeout time.Duration) ([]*Node, error) {
	data := &RequestData{
		Method:       http.MethodGet,
		Path:         d.Path,
		Node:         via,
		SniffTimeout: timeout,
	}

	raw, err := d.Transport.Call(ctx, data)
	if err != nil {
		return nil, err
	}
	defer raw.Body.Close()

	var parsed sniffNodesResponse
	if err := json.NewDecoder(raw.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	scheme := "http"
	if via.URI != nil && via.URI.Scheme != "" {
		scheme = via.URI.Scheme
	}

	nodes := make([]*Node, 0, len(parsed.Nodes))
	for _, entry := range parsed.Nodes {
		if entry.HTTP.PublishAddress == "" {
			continue
		}
		nodes = append(nodes, &Node{
			ID:      uuid.NewString(),
			URI:     &url.URL{Scheme: scheme, Host: entry.HTTP.PublishAddress},
			isAlive: true,
		})
	}
	if len(nodes) == 0 {
		return nil, errStringf("sniff response for %s contained no usable nodes", via.String())
	}
	return nodes, nil
}

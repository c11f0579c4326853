// Package httpsource is a DataSource backed by real HTTP GETs, using
// resty.dev/v3 as the underlying client. It demonstrates both the plain
// (per-request) and batched dispatch paths against a set of named
// endpoints: a small struct implementing the capability interfaces,
// backed by a shared client resource.
package httpsource

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"resty.dev/v3"

	"github.com/vk/muse"
)

// Request fetches a single named endpoint with query parameters. Endpoint
// must be a key the caller's client is configured to serve.
type Request struct {
	Endpoint string
	Params   map[string]string

	client *resty.Client
}

var _ muse.DataSource = Request{}

// New builds a Request bound to client, the shared *resty.Client resource
// callers hold for the lifetime of a run: one client, many requests.
func New(client *resty.Client, endpoint string, params map[string]string) Request {
	return Request{Endpoint: endpoint, Params: params, client: client}
}

// Identity is derived from the endpoint and the sorted parameter set, so
// two Requests describing the same call dedupe regardless of map order.
func (r Request) Identity() any {
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(r.Endpoint)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, r.Params[k])
	}
	return b.String()
}

// Fetch issues one GET against Endpoint with Params as the query string,
// returning the decoded JSON body. The body is decoded only when the
// response's Content-Type names JSON; otherwise the returned body is nil.
func (r Request) Fetch(ctx context.Context, env muse.Env) (any, error) {
	slog.Debug("httpsource: fetching", "endpoint", r.Endpoint, "params", r.Params)

	var body map[string]any
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(r.Params).
		SetResult(&body).
		Get(r.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("httpsource: request to %s failed: %w", r.Endpoint, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("httpsource: %s returned %s", r.Endpoint, resp.Status())
	}
	return body, nil
}

// BatchedRequest is a Request for an endpoint whose server also exposes a
// bulk-lookup path (Endpoint + "/batch"), taking a comma-separated "ids"
// query parameter and returning a JSON object keyed by id. Grouping many
// BatchedRequests into one FetchMulti call trades N round trips for one.
type BatchedRequest struct {
	Request
	ID string
}

var _ muse.BatchedSource = BatchedRequest{}

func (r BatchedRequest) Identity() any { return r.Endpoint + "#" + r.ID }

// FetchMulti issues one GET to Endpoint+"/batch" with every id (r's and
// others') joined into the "ids" query parameter, then splits the response
// object back out per identity.
func (r BatchedRequest) FetchMulti(ctx context.Context, others []muse.DataSource, env muse.Env) (map[any]any, error) {
	ids := []string{r.ID}
	for _, o := range others {
		peer, ok := o.(BatchedRequest)
		if !ok {
			return nil, fmt.Errorf("httpsource: FetchMulti received a non-BatchedRequest peer %T", o)
		}
		ids = append(ids, peer.ID)
	}

	slog.Debug("httpsource: batch fetching", "endpoint", r.Endpoint, "count", len(ids))

	var body map[string]any
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetResult(&body).
		Get(r.Endpoint + "/batch")
	if err != nil {
		return nil, fmt.Errorf("httpsource: batch request to %s failed: %w", r.Endpoint, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("httpsource: %s/batch returned %s", r.Endpoint, resp.Status())
	}

	out := make(map[any]any, len(ids))
	for _, id := range ids {
		v, ok := body[id]
		if !ok {
			continue
		}
		out[r.Endpoint+"#"+id] = v
	}
	return out, nil
}

// NewClient builds the shared *resty.Client resource passed to New,
// pointed at baseURL.
func NewClient(baseURL string) *resty.Client {
	client := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/"))
	return client
}

// ParseBaseURL validates a manifest-supplied base URL before it reaches
// NewClient, so a malformed endpoint fails at config-load time rather than
// on the first fetch.
func ParseBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("httpsource: invalid base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("httpsource: base URL %q must be absolute", raw)
	}
	return u.String(), nil
}

// Package sparql is the read-only adapter to the external triple store
// (a Fuseki-style SPARQL endpoint). It executes the four extraction
// queries and shapes their bindings into extract rows.
//
// The fetch is the pipeline's only suspend point: it is bounded by the
// client timeout and cancellable through the context. A failed fetch is
// fatal to the run; the caller owns retry policy.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/extract"
)

// DefaultTimeout bounds a single SELECT round trip.
const DefaultTimeout = 30 * time.Second

// Client talks to one SPARQL endpoint. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger for query tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the endpoint base URL
// (e.g. "http://localhost:3030").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binding is one SPARQL result row: variable name to bound value.
type Binding map[string]Value

// Value is a single bound term.
type Value struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Str returns the bound value of a variable, or "" when unbound.
func (b Binding) Str(name string) string {
	return b[name].Value
}

// Int returns the bound value parsed as an integer, or def when unbound
// or unparseable.
func (b Binding) Int(name string, def int) int {
	v := b[name].Value
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// IntPtr returns the bound value parsed as an integer, or nil when
// unbound or unparseable. Distinguishes an explicit zero from absence.
func (b Binding) IntPtr(name string) *int {
	v := b[name].Value
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// Bool returns the bound value parsed as a boolean, false when unbound.
func (b Binding) Bool(name string) bool {
	v, _ := strconv.ParseBool(b[name].Value)
	return v
}

// selectResponse is the application/sparql-results+json envelope.
type selectResponse struct {
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Select executes a SELECT query against a dataset and returns the
// bindings. Network failures map to SPARQL_NETWORK, non-2xx responses to
// SPARQL_QUERY.
func (c *Client) Select(ctx context.Context, dataset, query string) ([]Binding, error) {
	endpoint := fmt.Sprintf("%s/%s/sparql", c.baseURL, url.PathEscape(dataset))

	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSPARQLQuery, err, "build query request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSPARQLNetwork, err, "query %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.New(errors.ErrCodeSPARQLQuery,
			"endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out selectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSPARQLQuery, err, "decode result bindings")
	}

	c.logger.Debug("sparql select",
		"dataset", dataset,
		"rows", len(out.Results.Bindings),
		"duration", time.Since(start).Round(time.Millisecond))

	return out.Results.Bindings, nil
}

// Source adapts a dataset on this client to the pipeline's row source.
type Source struct {
	Client  *Client
	Dataset string
}

// Fetch runs the four extraction queries and assembles the raw row set.
func (s *Source) Fetch(ctx context.Context) (*extract.Rows, error) {
	rows := &extract.Rows{}

	topo, err := s.Client.Select(ctx, s.Dataset, TopologyQuery())
	if err != nil {
		return nil, err
	}
	shapeTopology(topo, rows)

	equipment, err := s.Client.Select(ctx, s.Dataset, EquipmentQuery())
	if err != nil {
		return nil, err
	}
	for _, b := range equipment {
		rows.Equipment = append(rows.Equipment, extract.EquipmentRow{
			URI:         b.Str("equipment"),
			Name:        b.Str("name"),
			Type:        b.Str("type"),
			Subtype:     b.Str("subtype"),
			BayURI:      b.Str("bay"),
			SourceOrder: b.IntPtr("sourceOrder"),
		})
	}

	terminals, err := s.Client.Select(ctx, s.Dataset, ConnectivityQuery())
	if err != nil {
		return nil, err
	}
	for _, b := range terminals {
		rows.Terminals = append(rows.Terminals, extract.TerminalRow{
			URI:          b.Str("terminal"),
			EquipmentURI: b.Str("equipment"),
			NodeURI:      b.Str("cnode"),
			SourceOrder:  b.IntPtr("sourceOrder"),
		})
	}

	nodes, err := s.Client.Select(ctx, s.Dataset, NodesQuery())
	if err != nil {
		return nil, err
	}
	for _, b := range nodes {
		rows.Nodes = append(rows.Nodes, extract.NodeRow{URI: b.Str("cnode")})
	}

	return rows, nil
}

// shapeTopology splits the joined containment rows into the three
// deduplicated row sets (substations, voltage levels, bays).
func shapeTopology(bindings []Binding, rows *extract.Rows) {
	seenSS := make(map[string]bool)
	seenVL := make(map[string]bool)
	seenBay := make(map[string]bool)

	for _, b := range bindings {
		if uri := b.Str("substation"); uri != "" && !seenSS[uri] {
			seenSS[uri] = true
			rows.Substations = append(rows.Substations, extract.SubstationRow{
				URI:  uri,
				Name: b.Str("substationName"),
			})
		}
		if uri := b.Str("voltageLevel"); uri != "" && !seenVL[uri] {
			seenVL[uri] = true
			rows.VoltageLevels = append(rows.VoltageLevels, extract.VoltageLevelRow{
				URI:           uri,
				Name:          b.Str("voltageLevelName"),
				Voltage:       b.Str("voltage"),
				SubstationURI: b.Str("substation"),
			})
		}
		if uri := b.Str("bay"); uri != "" && !seenBay[uri] {
			seenBay[uri] = true
			rows.Bays = append(rows.Bays, extract.BayRow{
				URI:             uri,
				Name:            b.Str("bayName"),
				IsCoupling:      b.Bool("isCoupling"),
				VoltageLevelURI: b.Str("voltageLevel"),
			})
		}
	}
}

package sparql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gridsmith/sldgen/pkg/errors"
)

// bindingsJSON wraps rows in the application/sparql-results+json envelope.
func bindingsJSON(t *testing.T, rows []map[string]string) []byte {
	t.Helper()
	bindings := make([]map[string]map[string]string, 0, len(rows))
	for _, row := range rows {
		b := make(map[string]map[string]string, len(row))
		for name, value := range row {
			b[name] = map[string]string{"type": "literal", "value": value}
		}
		bindings = append(bindings, b)
	}
	data, err := json.Marshal(map[string]any{
		"results": map[string]any{"bindings": bindings},
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// fakeEndpoint serves the four extraction queries for dataset "grid",
// dispatching on distinctive query patterns.
func fakeEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grid/sparql" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var rows []map[string]string
		query := r.FormValue("query")
		switch {
		case strings.Contains(query, "Terminal.ConductingEquipment"):
			rows = []map[string]string{
				{"terminal": "t1", "equipment": "d1", "cnode": "n1", "sourceOrder": "1"},
				{"terminal": "t2", "equipment": "d1", "cnode": "n2", "sourceOrder": "2"},
			}
		case strings.Contains(query, "Equipment.EquipmentContainer"):
			rows = []map[string]string{
				{"equipment": "d1", "name": "SA", "type": "DIS", "subtype": "SA1", "bay": "b1", "sourceOrder": "1"},
			}
		case strings.Contains(query, "cim:ConnectivityNode"):
			rows = []map[string]string{
				{"cnode": "n1"}, {"cnode": "n2"},
			}
		case strings.Contains(query, "cim:Substation"):
			// Joined containment rows repeat parents once per bay.
			rows = []map[string]string{
				{"substation": "ss", "substationName": "Quimper", "voltageLevel": "vl",
					"voltageLevelName": "E1", "voltage": "225", "bay": "b1", "bayName": "D1"},
				{"substation": "ss", "substationName": "Quimper", "voltageLevel": "vl",
					"voltageLevelName": "E1", "voltage": "225", "bay": "bc", "bayName": "K1", "isCoupling": "true"},
			}
		default:
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write(bindingsJSON(t, rows))
	}))
}

func TestClientSelect(t *testing.T) {
	var gotAccept, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Write(bindingsJSON(t, []map[string]string{{"cnode": "n1"}}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	bindings, err := c.Select(context.Background(), "grid", NodesQuery())
	if err != nil {
		t.Fatalf("Select error: %v", err)
	}
	if gotPath != "/grid/sparql" {
		t.Errorf("path = %s, want /grid/sparql", gotPath)
	}
	if gotAccept != "application/sparql-results+json" {
		t.Errorf("Accept = %s", gotAccept)
	}
	if len(bindings) != 1 || bindings[0].Str("cnode") != "n1" {
		t.Errorf("bindings = %v", bindings)
	}
}

func TestClientSelectQueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse error at line 3", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Select(context.Background(), "grid", NodesQuery())
	if !errors.Is(err, errors.ErrCodeSPARQLQuery) {
		t.Errorf("Select error = %v, want SPARQL_QUERY", err)
	}
}

func TestClientSelectNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL)
	_, err := c.Select(context.Background(), "grid", NodesQuery())
	if !errors.Is(err, errors.ErrCodeSPARQLNetwork) {
		t.Errorf("Select error = %v, want SPARQL_NETWORK", err)
	}
}

func TestBindingHelpers(t *testing.T) {
	b := Binding{
		"name":  Value{Type: "literal", Value: "E1"},
		"order": Value{Type: "literal", Value: "7"},
		"bad":   Value{Type: "literal", Value: "x7"},
		"flag":  Value{Type: "literal", Value: "true"},
	}

	if b.Str("name") != "E1" || b.Str("missing") != "" {
		t.Error("Str should return the bound value or empty")
	}
	if b.Int("order", -1) != 7 {
		t.Errorf("Int(order) = %d, want 7", b.Int("order", -1))
	}
	if b.Int("bad", -1) != -1 || b.Int("missing", -1) != -1 {
		t.Error("Int should fall back to the default")
	}
	if p := b.IntPtr("order"); p == nil || *p != 7 {
		t.Errorf("IntPtr(order) = %v, want 7", p)
	}
	if b.IntPtr("bad") != nil || b.IntPtr("missing") != nil {
		t.Error("IntPtr should be nil for unbound or unparseable values")
	}
	if !b.Bool("flag") || b.Bool("missing") {
		t.Error("Bool should parse true and default to false")
	}
}

func TestSourceFetch(t *testing.T) {
	srv := fakeEndpoint(t)
	defer srv.Close()

	src := &Source{Client: NewClient(srv.URL), Dataset: "grid"}
	rows, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	// Joined parents are deduplicated.
	if len(rows.Substations) != 1 || rows.Substations[0].Name != "Quimper" {
		t.Errorf("substations = %v", rows.Substations)
	}
	if len(rows.VoltageLevels) != 1 || rows.VoltageLevels[0].Voltage != "225" {
		t.Errorf("voltage levels = %v", rows.VoltageLevels)
	}
	if len(rows.Bays) != 2 {
		t.Fatalf("bays = %v", rows.Bays)
	}
	if !rows.Bays[1].IsCoupling {
		t.Error("bc should carry the coupling flag")
	}

	if len(rows.Equipment) != 1 || rows.Equipment[0].Subtype != "SA1" {
		t.Errorf("equipment = %v", rows.Equipment)
	}
	if len(rows.Terminals) != 2 || rows.Terminals[0].NodeURI != "n1" {
		t.Errorf("terminals = %v", rows.Terminals)
	}
	if p := rows.Terminals[0].SourceOrder; p == nil || *p != 1 {
		t.Errorf("terminal source order = %v, want 1", p)
	}
	if len(rows.Nodes) != 2 {
		t.Errorf("nodes = %v", rows.Nodes)
	}
}

func TestSourceFetchPropagatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such dataset", http.StatusNotFound)
	}))
	defer srv.Close()

	src := &Source{Client: NewClient(srv.URL), Dataset: "grid"}
	if _, err := src.Fetch(context.Background()); !errors.Is(err, errors.ErrCodeSPARQLQuery) {
		t.Errorf("Fetch error = %v, want SPARQL_QUERY", err)
	}
}

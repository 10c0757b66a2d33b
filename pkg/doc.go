// Package pkg provides the core libraries for sldgen single-line-diagram
// generation.
//
// # Overview
//
// sldgen reconstructs electrical topology from RDF substation
// descriptions and computes deterministic, convention-driven 2D layouts.
// The pkg directory is organized along the pipeline:
//
//	SPARQL endpoint / captured rows
//	         ↓
//	    [sparql] + [extract] (fetch rows, build the typed snapshot)
//	         ↓
//	    [topology] (bipartite connectivity graph)
//	         ↓
//	    [busbar] (heuristic cascade with provenance)
//	         ↓
//	    [validate] (findings, never fatal)
//	         ↓
//	    [convention] + [layout] (ordering rules → document)
//
// # Quick Start
//
// Convert a dataset end to end:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	client := sparql.NewClient("http://localhost:3030")
//	src := &sparql.Source{Client: client, Dataset: "grid-west"}
//	result, err := runner.Execute(ctx, src, pipeline.Options{Convention: "rte"})
//	if err != nil {
//	    return err
//	}
//	out, _ := result.Document.Marshal()
//
// # Main Packages
//
// [model] - Shared entity types (substations, voltage levels, bays,
// equipment, terminals, connectivity nodes, busbars) and the immutable
// snapshot.
//
// [sparql] - Read-only SPARQL endpoint adapter and the extraction
// queries.
//
// [extract] - Row-to-snapshot conversion; the only stage with fatal
// input-contract errors.
//
// [topology] - Bipartite connectivity graph, degrees, and connected
// components.
//
// [busbar] - The four-level busbar resolution cascade: explicit
// equipment, SA-subtype inference, coupling link annotation, and the
// single-busbar fallback.
//
// [validate] - Topology findings (orphan nodes, open ends, disconnected
// equipment).
//
// [convention] - Pluggable drawing conventions; the RTE convention ships
// built in, with TOML overrides.
//
// [layout] - The assembled, JSON-serializable layout document.
//
// [symbols] - The drawing symbol catalog with terminal anchor points.
//
// # Infrastructure
//
// [pipeline] - The complete fetch → resolve → assemble pipeline used by
// CLI and API, with per-stage caching.
//
// [cache] - Row and document caching (file, Redis, null backends).
//
// [store] - Layout document persistence (memory, MongoDB).
//
// [errors] - Structured errors with machine-readable codes.
//
// [render/dot] - Graphviz DOT export of the resolved connectivity graph
// for debugging.
//
// # Determinism
//
// Every stage breaks ties by lexicographic URI order and every output
// slice is emitted in its final display order: converting the same rows
// under the same convention twice produces byte-identical documents.
//
// [model]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/model
// [sparql]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/sparql
// [extract]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/extract
// [topology]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/topology
// [busbar]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/busbar
// [validate]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/validate
// [convention]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/convention
// [layout]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/layout
// [symbols]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/symbols
// [pipeline]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/cache
// [store]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/store
// [errors]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/errors
// [render/dot]: https://pkg.go.dev/github.com/gridsmith/sldgen/pkg/render/dot
package pkg

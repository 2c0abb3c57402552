// Package pkg provides the core libraries for gangrun production planning.
//
// # Overview
//
// Gangrun turns customer label orders into press-ready gang runs: items are
// packed into shared die slots, candidate layouts are scored against operator
// priorities, and the winning layout is driven through a remote imposition
// service run by run. The pkg directory is organized into four main areas:
//
//  1. Domain logic (geometry, plan) - slot derivation, candidate
//     proposal, scoring, suggestion merging
//  2. Orchestration (impose, store) - run queueing, batch execution,
//     durable run state
//  3. Integrations (integrations, cache, httputil) - HTTP clients for the
//     imposition, suggestion, and asset-signing services
//  4. Presentation (render, io) - DOT/SVG diagrams and order/document files
//
// # Architecture
//
// The typical data flow through gangrun:
//
//	Order JSON + Die Profile TOML
//	         ↓
//	    [geometry] package (validate die, derive slot configuration)
//	         ↓
//	    [plan] package (propose → measure → score → rank candidates)
//	         ↓
//	    plan document (ORD-1042.plan.json)
//	         ↓
//	    [impose] package (queue runs, submit, poll, collect artifacts)
//	         ↓
//	    press-ready imposition PDFs
//
// # Quick Start
//
// Plan an order and execute the selected layout:
//
//	import (
//	    "context"
//	    "github.com/rollfed/gangrun/pkg/geometry"
//	    "github.com/rollfed/gangrun/pkg/impose"
//	    "github.com/rollfed/gangrun/pkg/plan"
//	    "github.com/rollfed/gangrun/pkg/store"
//	)
//
//	// 1. Load the die and plan the order
//	die, _ := geometry.LoadDieline("die.toml")
//	planner := plan.NewPlanner(logger)
//	result, _ := planner.Plan(ctx, plan.PlanRequest{
//	    OrderID: "ORD-1042",
//	    Items:   items,
//	    Dieline: die.Geometry,
//	})
//
//	// 2. Persist the document with the top-ranked layout selected
//	doc := plan.NewDocument(req, *die, result)
//	_ = plan.ExportDocument(doc, "ORD-1042.plan.json")
//
//	// 3. Queue and impose the selected layout's runs
//	st := store.NewMemoryStore()
//	runs, _ := impose.EnsureRuns(ctx, st, doc)
//	orch, _ := impose.NewOrchestrator(client, assets, st, impose.ExecutePolicy{}, logger)
//	report, _ := orch.Execute(ctx, impose.Batch{
//	    OrderID: doc.OrderID,
//	    Dieline: doc.Dieline.Geometry,
//	    Items:   doc.Items,
//	})
//
// # Main Packages
//
// ## Domain Logic
//
// [geometry] - Die profiles and the physical model: label grid dimensions,
// frame length, slot configuration. A die profile is a TOML file; Validate
// rejects degenerate dimensions before they reach the planner.
//
// [plan] - The planning core. Three proposal strategies (ganged, isolated,
// roll-split) generate candidate layouts, metrics derive frames, meters,
// and waste per run, and the scorer ranks candidates by weighted material,
// print, and labor efficiency. Also merges externally suggested layouts
// through the same measure-and-score path, so external numbers are never
// trusted.
//
// ## Orchestration
//
// [impose] - Resilient batch execution against the remote imposition
// service: submit, poll with backoff, per-run state transitions, consecutive
// failure budget, cancellation with a partial report.
//
// [store] - Durable run and layout state. MemoryStore for tests, FileStore
// for the CLI (~/.gangrun/store), MongoStore for the service deployment.
//
// ## External Integrations
//
// [integrations] - Shared HTTP client with retry, caching, and status
// mapping, plus one subpackage per remote service: imposer (submit + poll),
// optimizer (layout suggestions), assets (signed print-asset URLs).
//
// [cache] - TTL cache behind the integrations clients: memory, file,
// Redis, and null backends with a namespaced keyer.
//
// [httputil] - RetryWithBackoff and the RetryableError marker that
// separates transient network failures from permanent rejections.
//
// ## Presentation
//
// [render] - Gang-plan diagrams: ToDOT emits a Graphviz digraph of the
// order, runs, and slot assignments; RenderSVG/RenderPDF/RenderPNG produce
// shareable files.
//
// [io] - Order file reading and validation.
//
// ## Shared Infrastructure
//
// [errors] - Error code taxonomy with wrapped causes, user-facing
// messages, and domain input validation.
//
// [observability] - Pluggable hook registries for plan, impose, and HTTP
// instrumentation.
//
// [buildinfo] - Version, commit, and build date injected at link time.
//
// # Common Workflows
//
// Merge an external suggestion into an existing document:
//
//	merged, _ := planner.MergeSuggestion(ctx, plan.MergeRequest{
//	    OrderID:    doc.OrderID,
//	    Items:      doc.Items,
//	    Dieline:    doc.Dieline.Geometry,
//	    Options:    doc.Options,
//	    SelectedID: doc.SelectedID,
//	    Suggested:  resp.Runs,
//	    Reasoning:  resp.OverallReasoning,
//	})
//	doc.Options, doc.SelectedID = merged.Options, merged.SelectedID
//
// Render the selected layout:
//
//	dot, _ := render.ToDOT(doc, doc.SelectedID, render.Options{Detailed: true})
//	svg, _ := render.RenderSVG(dot)
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/plan/...               # Specific package
//	go test -tags integration ./pkg/...  # Include integration tests
//
// [geometry]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/geometry
// [plan]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/plan
// [impose]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/impose
// [store]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/store
// [integrations]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/integrations
// [cache]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/httputil
// [render]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/render
// [io]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/io
// [errors]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/errors
// [observability]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/rollfed/gangrun/pkg/buildinfo
package pkg

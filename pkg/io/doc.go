// Package io provides JSON import and export for gang-run order files.
//
// # Overview
//
// An order file is the hand-authored input to planning: the order id plus
// the ordered items with their required quantities. The format is kept
// small enough that order-entry exports and humans can both produce it:
//
//	{
//	  "order_id": "ORD-1042",
//	  "items": [
//	    {"id": "peach-250ml", "required_quantity": 12000, "print_asset_ref": "orders/1042/peach.pdf"},
//	    {"id": "mango-250ml", "required_quantity": 9900, "needs_rotation": true}
//	  ]
//	}
//
// # Item Fields
//
// Required:
//   - id: unique item identifier within the order
//   - required_quantity: labels to produce, must be positive
//
// Optional:
//   - needs_rotation: artwork must be rotated 180 degrees in its slot
//   - print_asset_ref: storage reference of the print-ready artwork,
//     resolved to a signed URL at imposition time
//
// # Import
//
// Use [ImportOrder] to read an order from a file path, or [ReadOrder] to
// read from any io.Reader:
//
//	ord, err := io.ImportOrder("order.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Both functions validate the order id and the item list (no duplicates,
// positive quantities). Errors carry the offending item for context.
//
// # Export
//
// Use [ExportOrder] to write an order to a file, or [WriteOrder] to write
// to any io.Writer. Exports are indented and round-trip: an exported order
// re-imports identically.
//
// Planning results never live in order files; the persisted planning state
// is the plan document, see [plan.PlanDocument].
//
// [plan.PlanDocument]: github.com/rollfed/gangrun/pkg/plan.PlanDocument
package io

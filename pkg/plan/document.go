package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/geometry"
)

// =============================================================================
// Plan Document - Persisted Planning State
// =============================================================================

// DocumentVersion is the current plan document format version.
// Readers reject documents written by a newer format.
const DocumentVersion = 1

// PlanDocument is the persisted form of a planning session. It carries
// everything needed to re-score, merge suggestions into, or impose the plan
// later: the order inputs, the ranked candidates, and the selection.
//
// The document round-trips through JSON: export a plan, merge a suggestion
// into it, re-export, and re-import identically.
type PlanDocument struct {
	Version    int              `json:"version"`
	OrderID    string           `json:"order_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Dieline    geometry.Dieline `json:"dieline"`
	Items      []Item           `json:"items"`
	Weights    Weights          `json:"weights"`
	Policy     Policy           `json:"policy"`
	Options    []LayoutOption   `json:"options"`
	SelectedID string           `json:"selected_id"`
}

// NewDocument assembles a document from a plan request and its result.
func NewDocument(req PlanRequest, die geometry.Dieline, result *PlanResult) *PlanDocument {
	return &PlanDocument{
		Version:    DocumentVersion,
		OrderID:    req.OrderID,
		CreatedAt:  time.Now().UTC(),
		Dieline:    die,
		Items:      req.Items,
		Weights:    req.Weights,
		Policy:     req.Policy,
		Options:    result.Options,
		SelectedID: result.SelectedID,
	}
}

// Selected returns the currently selected candidate, or nil if the
// selection id matches none of the options.
func (d *PlanDocument) Selected() *LayoutOption {
	for i := range d.Options {
		if d.Options[i].ID == d.SelectedID {
			return &d.Options[i]
		}
	}
	return nil
}

// Option returns the candidate with the given id, or nil.
func (d *PlanDocument) Option(id string) *LayoutOption {
	for i := range d.Options {
		if d.Options[i].ID == id {
			return &d.Options[i]
		}
	}
	return nil
}

// Select switches the selection to the candidate with the given id.
func (d *PlanDocument) Select(id string) error {
	if d.Option(id) == nil {
		return errors.New(errors.ErrCodeLayoutNotFound, "no candidate with id %q", id)
	}
	d.SelectedID = id
	return nil
}

// RemoveSuggestion drops the external suggestion from the candidate set.
// If it held the selection, the selection moves to the top-ranked remaining
// candidate. Returns true if a suggestion was present.
func (d *PlanDocument) RemoveSuggestion() bool {
	kept := d.Options[:0]
	removed := false
	for _, o := range d.Options {
		if o.IsSuggested() {
			removed = true
			continue
		}
		kept = append(kept, o)
	}
	d.Options = kept
	if removed && d.Selected() == nil && len(d.Options) > 0 {
		d.SelectedID = d.Options[0].ID
	}
	return removed
}

// =============================================================================
// JSON Read / Write
// =============================================================================

// WriteDocument encodes a plan document as indented JSON and writes it to w.
// The output can be re-imported with [ReadDocument] for round-trip processing.
func WriteDocument(d *PlanDocument, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportDocument writes a plan document to a JSON file at path.
// This is a convenience wrapper around [WriteDocument] for file-based output.
func ExportDocument(d *PlanDocument, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteDocument(d, f)
}

// ReadDocument decodes a plan document from r.
//
// ReadDocument returns an error if:
//   - The JSON is malformed
//   - The document version is newer than this build understands
//   - The document has no order id or no candidates
//   - The selection id matches none of the candidates
//
// The returned document is independent of r and can be modified safely
// after ReadDocument returns. ReadDocument does not close r.
func ReadDocument(r io.Reader) (*PlanDocument, error) {
	var d PlanDocument
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if d.Version > DocumentVersion {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"plan document version %d is newer than supported version %d", d.Version, DocumentVersion)
	}
	if err := errors.ValidateOrderID(d.OrderID); err != nil {
		return nil, err
	}
	if len(d.Options) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidLayout, "plan document has no candidates")
	}
	if d.Selected() == nil {
		return nil, errors.New(errors.ErrCodeLayoutNotFound,
			"selection %q matches no candidate in plan document", d.SelectedID)
	}
	return &d, nil
}

// ImportDocument reads a JSON file at path and returns the decoded document.
//
// ImportDocument opens the file, decodes it using [ReadDocument], and closes
// the file. Errors wrap the underlying cause with the file path for context.
func ImportDocument(path string) (*PlanDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	d, err := ReadDocument(f)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return d, nil
}

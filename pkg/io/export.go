package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteOrder encodes an order as indented JSON and writes it to w.
// The output can be re-imported with [ReadOrder] for round-trip processing.
func WriteOrder(o *Order, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportOrder writes an order to a JSON file at path.
// This is a convenience wrapper around [WriteOrder] for file-based output.
func ExportOrder(o *Order, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteOrder(o, f)
}

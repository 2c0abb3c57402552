package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
)

// Order is one customer order as read from an order file.
type Order struct {
	OrderID string      `json:"order_id"`
	Items   []plan.Item `json:"items"`
}

// Validate checks the order id and the item list.
func (o *Order) Validate() error {
	if err := errors.ValidateOrderID(o.OrderID); err != nil {
		return err
	}
	return plan.ValidateItems(o.Items)
}

// ReadOrder decodes an order from r.
//
// ReadOrder returns an error if:
//   - The JSON is malformed
//   - The order id is missing or unsafe
//   - The item list is empty, carries a duplicate id, or requires a
//     non-positive quantity
//
// The returned order is independent of r and can be modified safely after
// ReadOrder returns. ReadOrder does not close r.
func ReadOrder(r io.Reader) (*Order, error) {
	var o Order
	if err := json.NewDecoder(r).Decode(&o); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// ImportOrder reads a JSON file at path and returns the decoded order.
//
// ImportOrder opens the file, decodes it using [ReadOrder], and closes the
// file. Errors wrap the underlying cause with the file path for context.
func ImportOrder(path string) (*Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	o, err := ReadOrder(f)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return o, nil
}

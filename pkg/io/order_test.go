package io

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rollfed/gangrun/pkg/plan"
)

func testOrder() *Order {
	return &Order{
		OrderID: "ORD-1042",
		Items: []plan.Item{
			{ID: "peach-250ml", RequiredQuantity: 12000, PrintAssetRef: "orders/1042/peach.pdf"},
			{ID: "mango-250ml", RequiredQuantity: 9900, NeedsRotation: true},
		},
	}
}

func TestReadOrder(t *testing.T) {
	input := `{
		"order_id": "ORD-1042",
		"items": [
			{"id": "peach-250ml", "required_quantity": 12000, "print_asset_ref": "orders/1042/peach.pdf"},
			{"id": "mango-250ml", "required_quantity": 9900, "needs_rotation": true}
		]
	}`

	o, err := ReadOrder(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadOrder() error: %v", err)
	}

	if o.OrderID != "ORD-1042" {
		t.Errorf("OrderID = %q, want %q", o.OrderID, "ORD-1042")
	}
	if len(o.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(o.Items))
	}
	if o.Items[0].PrintAssetRef != "orders/1042/peach.pdf" {
		t.Errorf("PrintAssetRef = %q", o.Items[0].PrintAssetRef)
	}
	if !o.Items[1].NeedsRotation {
		t.Error("Items[1].NeedsRotation should be true")
	}
}

func TestReadOrderRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{"order_id": "x", "items": [`},
		{"missing order id", `{"items": [{"id": "a", "required_quantity": 10}]}`},
		{"no items", `{"order_id": "ORD-1", "items": []}`},
		{"duplicate item id", `{"order_id": "ORD-1", "items": [{"id": "a", "required_quantity": 10}, {"id": "a", "required_quantity": 20}]}`},
		{"zero quantity", `{"order_id": "ORD-1", "items": [{"id": "a", "required_quantity": 0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadOrder(strings.NewReader(tt.input)); err == nil {
				t.Error("ReadOrder() should have failed")
			}
		})
	}
}

func TestOrderRoundTrip(t *testing.T) {
	want := testOrder()

	var buf bytes.Buffer
	if err := WriteOrder(want, &buf); err != nil {
		t.Fatalf("WriteOrder() error: %v", err)
	}

	got, err := ReadOrder(&buf)
	if err != nil {
		t.Fatalf("ReadOrder() error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestImportExportOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.json")

	if err := ExportOrder(testOrder(), path); err != nil {
		t.Fatalf("ExportOrder() error: %v", err)
	}

	got, err := ImportOrder(path)
	if err != nil {
		t.Fatalf("ImportOrder() error: %v", err)
	}
	if got.OrderID != "ORD-1042" {
		t.Errorf("OrderID = %q, want %q", got.OrderID, "ORD-1042")
	}
}

func TestImportOrderMissingFile(t *testing.T) {
	_, err := ImportOrder(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("ImportOrder() should fail on a missing file")
	}
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist, got %v", err)
	}
}

func TestOrderValidate(t *testing.T) {
	o := &Order{OrderID: "ORD-1", Items: []plan.Item{{ID: "a", RequiredQuantity: -3}}}
	if err := o.Validate(); err == nil {
		t.Error("Validate() should reject negative quantities")
	}
}

package render

import (
	"context"
	"strings"
	"testing"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/geometry"
	"github.com/rollfed/gangrun/pkg/plan"
)

func renderDocument(t *testing.T) *plan.PlanDocument {
	t.Helper()
	geom := geometry.DielineGeometry{
		RollWidthMM:     500,
		LabelWidthMM:    76.2,
		LabelHeightMM:   50.8,
		ColumnsAcross:   6,
		RowsAround:      4,
		HorizontalGapMM: 3.0,
		VerticalGapMM:   3.2,
	}
	req := plan.PlanRequest{
		OrderID: "order-7",
		Items: []plan.Item{
			{ID: "item-a", RequiredQuantity: 1000},
			{ID: "item-b", RequiredQuantity: 990},
		},
		Dieline: geom,
	}
	result, err := plan.NewPlanner(nil).Plan(context.Background(), req)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	die := geometry.Dieline{Name: "rect-76x51-6x4", Geometry: geom}
	return plan.NewDocument(req, die, result)
}

func TestToDOTSelectedLayout(t *testing.T) {
	doc := renderDocument(t)

	dot, err := ToDOT(doc, "", Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	for _, want := range []string{
		"digraph gangplan {",
		`"item:item-a"`,
		`"item:item-b"`,
		`"run:1"`,
		`"item:item-a" -> "run:1"`,
		"1000 needed",
		"rect-76x51-6x4",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT not terminated")
	}
}

func TestToDOTExplicitLayout(t *testing.T) {
	doc := renderDocument(t)
	if len(doc.Options) < 2 {
		t.Fatalf("fixture needs 2 candidates, got %d", len(doc.Options))
	}
	other := doc.Options[1].ID

	dot, err := ToDOT(doc, other, Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	if !strings.Contains(dot, "order-7 - "+other) {
		t.Errorf("DOT label does not name layout %q:\n%s", other, dot)
	}
	// The isolated strategy puts each item in its own run.
	if !strings.Contains(dot, `"run:2"`) {
		t.Errorf("DOT for %q missing second run", other)
	}
}

func TestToDOTUnknownLayout(t *testing.T) {
	doc := renderDocument(t)
	_, err := ToDOT(doc, "no-such-layout", Options{})
	if !errors.Is(err, errors.ErrCodeLayoutNotFound) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeLayoutNotFound)
	}
}

func TestToDOTDetailed(t *testing.T) {
	doc := renderDocument(t)
	dot, err := ToDOT(doc, "", Options{Detailed: true})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	if !strings.Contains(dot, "score ") {
		t.Errorf("detailed DOT missing score breakdown:\n%s", dot)
	}
	if !strings.Contains(dot, "labels per roll") {
		t.Errorf("detailed DOT missing per-roll label counts:\n%s", dot)
	}
}

func TestToDOTMarksRewindingRuns(t *testing.T) {
	doc := renderDocument(t)
	// Force a rewinding marker rather than constructing a qty-per-roll plan.
	opt := doc.Selected()
	opt.Runs[0].NeedsRewinding = true

	dot, err := ToDOT(doc, "", Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	if !strings.Contains(dot, "dashed") || !strings.Contains(dot, "lightgrey") {
		t.Errorf("rewinding run not visually marked:\n%s", dot)
	}
	if !strings.Contains(dot, `\nrewind`) {
		t.Errorf("rewinding run label missing marker:\n%s", dot)
	}
}

func TestToDOTIsDeterministic(t *testing.T) {
	doc := renderDocument(t)
	a, err := ToDOT(doc, "", Options{Detailed: true})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	b, err := ToDOT(doc, "", Options{Detailed: true})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	if a != b {
		t.Error("ToDOT output differs across identical calls")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	svg := []byte(`<svg width="8.5in" height="11in" viewBox="0.00 0.00 612.00 792.00" xmlns="http://www.w3.org/2000/svg"><g></g></svg>`)
	got := string(normalizeViewBox(svg))
	if !strings.Contains(got, `viewBox="0 0 612.00 792.00"`) {
		t.Errorf("viewBox not normalized: %s", got)
	}
	if !strings.Contains(got, `width="612" height="792"`) {
		t.Errorf("pixel dimensions not set: %s", got)
	}

	// SVGs without a viewBox pass through untouched.
	plain := []byte(`<svg></svg>`)
	if string(normalizeViewBox(plain)) != `<svg></svg>` {
		t.Error("svg without viewBox was modified")
	}
}

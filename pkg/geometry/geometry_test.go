package geometry

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// testGeometry is the 6x4 rectangular die used throughout the planner tests.
func testGeometry() DielineGeometry {
	return DielineGeometry{
		RollWidthMM:     500,
		LabelWidthMM:    76.2,
		LabelHeightMM:   50.8,
		ColumnsAcross:   6,
		RowsAround:      4,
		HorizontalGapMM: 3.0,
		VerticalGapMM:   3.2,
	}
}

func TestDerive(t *testing.T) {
	cfg := Derive(testGeometry())

	if cfg.LabelsPerFrame != 24 {
		t.Errorf("LabelsPerFrame = %d, want 24", cfg.LabelsPerFrame)
	}
	if cfg.LabelsPerSlot != 4 {
		t.Errorf("LabelsPerSlot = %d, want 4", cfg.LabelsPerSlot)
	}
}

func TestSlots(t *testing.T) {
	cfg := Derive(testGeometry())
	if got := cfg.Slots(); got != 6 {
		t.Errorf("Slots() = %d, want 6", got)
	}

	var zero SlotConfig
	if got := zero.Slots(); got != 0 {
		t.Errorf("Slots() on zero config = %d, want 0", got)
	}
}

func TestDeriveIsTotal(t *testing.T) {
	// Derive never fails, even on garbage; validation is separate.
	cfg := Derive(DielineGeometry{ColumnsAcross: -1, RowsAround: 3})
	if cfg.LabelsPerFrame != -3 {
		t.Errorf("LabelsPerFrame = %d, want -3", cfg.LabelsPerFrame)
	}
}

func TestFramesFor(t *testing.T) {
	cfg := SlotConfig{LabelsPerFrame: 24, LabelsPerSlot: 4}

	tests := []struct {
		name     string
		quantity int
		want     int
	}{
		{"exact multiple", 100, 25},
		{"one over", 101, 26},
		{"one under", 99, 25},
		{"single label", 1, 1},
		{"zero", 0, 0},
		{"negative", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.FramesFor(tt.quantity); got != tt.want {
				t.Errorf("FramesFor(%d) = %d, want %d", tt.quantity, got, tt.want)
			}
		})
	}
}

func TestMeters(t *testing.T) {
	g := testGeometry()

	// Frame length = 50.8 + 3.2 = 54mm; 25 frames = 1350mm = 1.35m.
	got := g.Meters(25)
	if math.Abs(got-1.35) > 1e-9 {
		t.Errorf("Meters(25) = %v, want 1.35", got)
	}

	if g.Meters(0) != 0 {
		t.Errorf("Meters(0) = %v, want 0", g.Meters(0))
	}
}

func TestFrameWidthMM(t *testing.T) {
	g := testGeometry()

	// 6 * 76.2 + 5 * 3.0 = 472.2
	got := g.FrameWidthMM()
	if math.Abs(got-472.2) > 1e-9 {
		t.Errorf("FrameWidthMM() = %v, want 472.2", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DielineGeometry)
		wantErr bool
	}{
		{"valid", func(g *DielineGeometry) {}, false},
		{"zero label width", func(g *DielineGeometry) { g.LabelWidthMM = 0 }, true},
		{"negative label height", func(g *DielineGeometry) { g.LabelHeightMM = -1 }, true},
		{"zero columns", func(g *DielineGeometry) { g.ColumnsAcross = 0 }, true},
		{"zero rows", func(g *DielineGeometry) { g.RowsAround = 0 }, true},
		{"negative h gap", func(g *DielineGeometry) { g.HorizontalGapMM = -0.5 }, true},
		{"negative v gap", func(g *DielineGeometry) { g.VerticalGapMM = -0.5 }, true},
		{"negative bleed", func(g *DielineGeometry) { g.BleedMM = -1 }, true},
		{"zero roll width", func(g *DielineGeometry) { g.RollWidthMM = 0 }, true},
		{"grid wider than roll", func(g *DielineGeometry) { g.RollWidthMM = 400 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGeometry()
			tt.mutate(&g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDieline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "die.toml")
	content := `name = "rect-76x51-6x4"

[geometry]
roll_width = 500.0
label_width = 76.2
label_height = 50.8
columns_across = 6
rows_around = 4
h_gap = 3.0
v_gap = 3.2
corner_radius = 1.5
bleed = 1.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDieline(path)
	if err != nil {
		t.Fatalf("LoadDieline error: %v", err)
	}

	if d.Name != "rect-76x51-6x4" {
		t.Errorf("Name = %q, want %q", d.Name, "rect-76x51-6x4")
	}
	if d.Geometry.ColumnsAcross != 6 || d.Geometry.RowsAround != 4 {
		t.Errorf("grid = %dx%d, want 6x4", d.Geometry.ColumnsAcross, d.Geometry.RowsAround)
	}

	cfg := Derive(d.Geometry)
	if cfg.LabelsPerFrame != 24 {
		t.Errorf("LabelsPerFrame = %d, want 24", cfg.LabelsPerFrame)
	}
}

func TestLoadDielineErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.toml")},
		{"bad toml", write("bad.toml", "name = [unclosed")},
		{"no name", write("unnamed.toml", "[geometry]\nroll_width = 500.0\nlabel_width = 76.2\nlabel_height = 50.8\ncolumns_across = 6\nrows_around = 4\n")},
		{"degenerate geometry", write("degenerate.toml", "name = \"bad\"\n[geometry]\nroll_width = 500.0\nlabel_width = 0.0\nlabel_height = 50.8\ncolumns_across = 6\nrows_around = 4\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadDieline(tt.path); err == nil {
				t.Error("LoadDieline() error = nil, want error")
			}
		})
	}
}

package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rollfed/gangrun/pkg/integrations/optimizer"
	"github.com/rollfed/gangrun/pkg/plan"
	"github.com/rollfed/gangrun/pkg/store"
)

// =============================================================================
// Fixtures
// =============================================================================

// Two items with near-identical quantities: the planner yields the ganged
// run plus the isolated fallback, deterministically.
const testOrderJSON = `{
  "order_id": "ORD-1042",
  "items": [
    {"id": "item-a", "required_quantity": 1000},
    {"id": "item-b", "required_quantity": 990}
  ]
}`

const testDieTOML = `name = "rect-76x51-6x4"

[geometry]
roll_width = 500.0
label_width = 76.2
label_height = 50.8
columns_across = 6
rows_around = 4
h_gap = 3.0
v_gap = 3.2
`

// setupEnv isolates a test from the developer's real config, cache, and
// service environment.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(envConfig, "")
	t.Setenv(envOptimizerURL, "")
	t.Setenv(envImposerURL, "")
	t.Setenv(envImposerToken, "")
	t.Setenv(envAssetsURL, "")
	t.Setenv(envStateDir, "")
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func writeOrderAndDie(t *testing.T, dir string) (orderPath, diePath string) {
	t.Helper()
	orderPath = filepath.Join(dir, "order.json")
	if err := os.WriteFile(orderPath, []byte(testOrderJSON), 0o644); err != nil {
		t.Fatalf("write order: %v", err)
	}
	diePath = filepath.Join(dir, "die.toml")
	if err := os.WriteFile(diePath, []byte(testDieTOML), 0o644); err != nil {
		t.Fatalf("write die: %v", err)
	}
	return orderPath, diePath
}

// planFixture runs the plan command and returns the document path.
func planFixture(t *testing.T, dir string) string {
	t.Helper()
	orderPath, diePath := writeOrderAndDie(t, dir)
	out := filepath.Join(dir, "order.plan.json")
	if err := runCommand(t, "plan", orderPath, "--die", diePath, "--output", out); err != nil {
		t.Fatalf("plan fixture: %v", err)
	}
	return out
}

// =============================================================================
// plan
// =============================================================================

func TestPlanCommandWritesDocument(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	orderPath, diePath := writeOrderAndDie(t, dir)
	out := filepath.Join(dir, "out.plan.json")

	if err := runCommand(t, "plan", orderPath, "--die", diePath, "--output", out); err != nil {
		t.Fatalf("plan: %v", err)
	}

	doc, err := plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("import document: %v", err)
	}
	if doc.OrderID != "ORD-1042" {
		t.Errorf("order id = %q, want ORD-1042", doc.OrderID)
	}
	if len(doc.Options) < 2 {
		t.Fatalf("options = %d, want at least 2", len(doc.Options))
	}
	if doc.SelectedID != doc.Options[0].ID {
		t.Errorf("selected = %q, want top-ranked %q", doc.SelectedID, doc.Options[0].ID)
	}
	if doc.Dieline.Name != "rect-76x51-6x4" {
		t.Errorf("dieline = %q, want the die profile name", doc.Dieline.Name)
	}
}

func TestPlanCommandDefaultOutput(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	writeOrderAndDie(t, dir)
	t.Chdir(dir)

	if err := runCommand(t, "plan", "order.json", "--die", "die.toml"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if _, err := os.Stat("ORD-1042.plan.json"); err != nil {
		t.Errorf("default output missing: %v", err)
	}
}

func TestPlanCommandMissingDie(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	orderPath, _ := writeOrderAndDie(t, dir)

	err := runCommand(t, "plan", orderPath, "--die", filepath.Join(dir, "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing die profile")
	}
}

func TestPlanCommandWeightLayering(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	orderPath, diePath := writeOrderAndDie(t, dir)
	cfgPath := filepath.Join(dir, configFileName)
	cfgTOML := "[weights]\nmaterial = 0.6\nprint = 0.25\nlabor = 0.15\n"
	if err := os.WriteFile(cfgPath, []byte(cfgTOML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out := filepath.Join(dir, "out.plan.json")

	err := runCommand(t, "plan", orderPath, "--die", diePath, "--output", out,
		"--config", cfgPath, "--material", "0.9")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	doc, err := plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("import document: %v", err)
	}
	if doc.Weights.Material != 0.9 {
		t.Errorf("material = %v, want the flag override 0.9", doc.Weights.Material)
	}
	if doc.Weights.Print != 0.25 {
		t.Errorf("print = %v, want the config value 0.25", doc.Weights.Print)
	}
}

// =============================================================================
// select
// =============================================================================

func TestSelectCommandChangesSelection(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	doc, err := plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("import document: %v", err)
	}
	var other string
	for _, o := range doc.Options {
		if o.ID != doc.SelectedID {
			other = o.ID
			break
		}
	}
	if other == "" {
		t.Fatal("fixture should have a second candidate")
	}

	if err := runCommand(t, "select", out, other); err != nil {
		t.Fatalf("select: %v", err)
	}

	doc, err = plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("reimport document: %v", err)
	}
	if doc.SelectedID != other {
		t.Errorf("selected = %q, want %q", doc.SelectedID, other)
	}
}

func TestSelectCommandUnknownLayout(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	if err := runCommand(t, "select", out, "bogus"); err == nil {
		t.Fatal("expected error for unknown layout id")
	}
}

// =============================================================================
// viz
// =============================================================================

func TestVizCommandWritesDOT(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)
	dotPath := filepath.Join(dir, "layout.dot")

	if err := runCommand(t, "viz", out, "--output", dotPath); err != nil {
		t.Fatalf("viz: %v", err)
	}

	data, err := os.ReadFile(dotPath)
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(data), "digraph gangplan") {
		t.Error("dot output should contain the graph header")
	}
}

func TestVizCommandRejectsUnknownFormat(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	err := runCommand(t, "viz", out, "--output", filepath.Join(dir, "layout.bmp"))
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Fatalf("err = %v, want unsupported format error", err)
	}
}

// =============================================================================
// suggest
// =============================================================================

func TestSuggestCommandMergesSuggestion(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/suggestions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := optimizer.Response{
			Runs: []plan.SuggestedRun{{
				SlotAssignments: []plan.SlotAssignment{
					{SlotIndex: 0, ItemID: "item-a", QuantityInSlot: 1000},
					{SlotIndex: 1, ItemID: "item-b", QuantityInSlot: 990},
				},
			}},
			OverallReasoning: "gang both items, quantities are close",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv(envOptimizerURL, srv.URL)

	if err := runCommand(t, "suggest", out, "--no-cache"); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	doc, err := plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("reimport document: %v", err)
	}
	if doc.Option(plan.SuggestedLayoutID) == nil {
		t.Error("document should contain the merged suggestion")
	}
}

func TestSuggestCommandRateLimited(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/suggestions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv(envOptimizerURL, srv.URL)

	// Rate limiting is not an error; the local candidates stand.
	if err := runCommand(t, "suggest", out, "--no-cache"); err != nil {
		t.Fatalf("suggest: %v", err)
	}

	doc, err := plan.ImportDocument(out)
	if err != nil {
		t.Fatalf("reimport document: %v", err)
	}
	if doc.Option(plan.SuggestedLayoutID) != nil {
		t.Error("rate-limited suggest should leave the candidate set unchanged")
	}
}

func TestSuggestCommandRequiresService(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	if err := runCommand(t, "suggest", out); err == nil {
		t.Fatal("expected error when the suggestion service is not configured")
	}
}

// =============================================================================
// impose
// =============================================================================

// fastImposeConfig keeps the inter-run delay out of the test runtime.
const fastImposeConfig = "[impose]\ninter_run_delay_ms = 1\n"

func writeImposeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(fastImposeConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestImposeCommandRunsBatch(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)
	cfgPath := writeImposeConfig(t, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	mux.HandleFunc("/impositions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "completed", "artifact_urls": ["https://cdn.example/press/run.pdf"]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv(envImposerURL, srv.URL)

	stateDir := filepath.Join(dir, "state")
	t.Setenv(envStateDir, stateDir)

	if err := runCommand(t, "impose", out, "--plain", "--config", cfgPath); err != nil {
		t.Fatalf("impose: %v", err)
	}

	st, err := store.NewFileStore(stateDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close(context.Background())

	runs, err := st.ListRuns(context.Background(), "ORD-1042")
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("no runs were queued")
	}
	for _, r := range runs {
		if r.Status != store.StatusImposed {
			t.Errorf("run %d status = %q, want imposed", r.RunNumber, r.Status)
		}
		if len(r.Artifacts) == 0 {
			t.Errorf("run %d has no artifacts", r.RunNumber)
		}
	}
}

func TestImposeCommandFailedRuns(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)
	cfgPath := writeImposeConfig(t, dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	mux.HandleFunc("/impositions", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "press is on fire", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv(envImposerURL, srv.URL)

	stateDir := filepath.Join(dir, "state")
	t.Setenv(envStateDir, stateDir)

	err := runCommand(t, "impose", out, "--plain", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "did not impose") {
		t.Fatalf("err = %v, want a failed-runs error", err)
	}

	st, err := store.NewFileStore(stateDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close(context.Background())

	runs, err := st.ListRuns(context.Background(), "ORD-1042")
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	for _, r := range runs {
		if r.Status != store.StatusPlanned {
			t.Errorf("run %d status = %q, want planned for retry", r.RunNumber, r.Status)
		}
	}
}

func TestImposeCommandRequiresService(t *testing.T) {
	setupEnv(t)
	dir := t.TempDir()
	out := planFixture(t, dir)

	if err := runCommand(t, "impose", out, "--plain"); err == nil {
		t.Fatal("expected error when the imposition service is not configured")
	}
}

package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("/src/test.bl", []byte("a :: 1;\na :: 2;\nb :: c;\n"))
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaDuplicateSymbol, source.Span{File: fileID, Start: 8, End: 9}, "duplicate symbol 'a'").
		WithNote(source.Span{File: fileID, Start: 0, End: 1}, "previous declaration is here"))
	bag.Add(diag.NewError(diag.SemaUnresolvedSymbol, source.Span{File: fileID, Start: 21, End: 22}, "unknown symbol 'c'"))
	return bag, fs
}

// TestJSONBasic проверяет базовое JSON форматирование
func TestJSONBasic(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 || out.Errors != 2 {
		t.Fatalf("count = %d errors = %d", out.Count, out.Errors)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "SEM3002" || d.Message != "duplicate symbol 'a'" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location.File != "test.bl" || d.Location.StartLine != 2 || d.Location.StartCol != 1 {
		t.Fatalf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 1 {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if loc := out.Diagnostics[1].Location; loc.StartLine != 3 || loc.StartCol != 6 {
		t.Fatalf("second location = %+v", loc)
	}
}

func TestJSONMaxAndPositions(t *testing.T) {
	bag, fs := sampleBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1, PathMode: PathModeAbsolute, Dropped: 3})
	if out.Count != 1 || out.Truncated != 1 || out.Suppressed != 3 || out.Errors != 2 {
		t.Fatalf("unexpected summary %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Location.StartLine != 0 || d.Location.StartByte != 8 {
		t.Fatalf("positions must be omitted: %+v", d.Location)
	}
	if d.Notes != nil {
		t.Fatal("notes must be omitted")
	}
	if d.Location.File != "/src/test.bl" {
		t.Fatalf("file = %q", d.Location.File)
	}
}

func TestSarif(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := Sarif(&buf, bag, fs, SarifRunMeta{ToolName: "biscuit", ToolVersion: "0.1.0", InvocationArgs: []string{"check", "test.bl"}}); err != nil {
		t.Fatal(err)
	}
	var log struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Name  string `json:"name"`
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID           string            `json:"ruleId"`
				Level            string            `json:"level"`
				RelatedLocations []json.RawMessage `json:"relatedLocations"`
			} `json:"results"`
			Invocations []struct {
				ExecutionSuccessful bool `json:"executionSuccessful"`
			} `json:"invocations"`
		} `json:"runs"`
	}
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("log = %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "biscuit" || len(run.Tool.Driver.Rules) != 2 || run.Tool.Driver.Rules[0].ID != "SEM3002" {
		t.Fatalf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Results) != 2 || run.Results[0].Level != "error" || len(run.Results[0].RelatedLocations) != 1 {
		t.Fatalf("results = %+v", run.Results)
	}
	if len(run.Invocations) != 1 || run.Invocations[0].ExecutionSuccessful {
		t.Fatalf("invocations = %+v", run.Invocations)
	}
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// 1. Empty and comment-only catalogues build an empty world.
// ---------------------------------------------------------------------------

func TestE2EEmptyCatalogues(t *testing.T) {
	for name, source := range map[string]string{
		"empty":         "",
		"whitespace":    "   \n\t\n",
		"comments only": "; nothing here\n; or here\n",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := NewApp(testConfig(), nil).Build(source)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Errors) != 0 {
				t.Fatalf("unexpected eval errors: %v", res.Errors)
			}
			if len(res.Detectors) != 0 || len(res.Sensitive) != 0 || len(res.Sources) != 0 {
				t.Errorf("expected an empty build, got %+v", res)
			}
			if res.Volumes != 0 {
				t.Errorf("expected only the world volume, got %d more", res.Volumes)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 2. Invalid declarations are eval errors, never panics or partial builds.
// ---------------------------------------------------------------------------

func TestE2EInvalidDeclarations(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"negative distance", `(coaxial "ge" :collection "coaxial-tunl-60" :distance -5)`, "distance"},
		{"duplicate name", `(coaxial "ge" :collection "coaxial-tunl-60")
(coaxial "ge" :collection "coaxial-molly")`, "declared twice"},
		{"unknown collection", `(clover "c" :collection "clover-nowhere")`, "unknown collection"},
		{"wrong family", `(clover "c" :collection "coaxial-molly")`, "coaxial"},
		{"unknown target", `(target "u235")`, "unknown preset"},
		{"zero filter", `(coaxial "ge" :collection "coaxial-tunl-60" :filters (list (filter "G4_Cu" 0)))`, "thickness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewApp(testConfig(), nil).Build(tt.source)
			if err != nil {
				t.Fatalf("expected eval errors, got fatal error: %v", err)
			}
			if len(res.Errors) == 0 {
				t.Fatal("expected eval errors")
			}
			var msgs []string
			for _, e := range res.Errors {
				msgs = append(msgs, e.Message)
			}
			if all := strings.Join(msgs, "\n"); !strings.Contains(all, tt.want) {
				t.Errorf("errors %q do not mention %q", all, tt.want)
			}
			if res.World != nil {
				t.Error("nothing should be built")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Repeated builds on one App: every build gets its own world and ID.
// ---------------------------------------------------------------------------

func TestE2ERepeatedBuilds(t *testing.T) {
	app := NewApp(testConfig(), nil)
	source := `(scintillator "s" :collection "labr3-3x3" :theta 90 :distance 70)`

	a, err := app.Build(source)
	if err != nil {
		t.Fatal(err)
	}
	b, err := app.Build(source)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("builds share an ID")
	}
	if a.World == b.World {
		t.Error("builds share a world")
	}
	if len(a.Sensitive) != 1 || len(b.Sensitive) != 1 {
		t.Errorf("expected one sensitive volume per build, got %d and %d", len(a.Sensitive), len(b.Sensitive))
	}
}

// ---------------------------------------------------------------------------
// 4. Concurrent builds: no panics, no data races. A build superseded by a
//    newer one on the same engine may fail; the rest must succeed.
//    Run with `go test -race` to detect data races.
// ---------------------------------------------------------------------------

func TestE2EConcurrentBuilds(t *testing.T) {
	app := NewApp(testConfig(), nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	results := make([]*BuildResult, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf(`(scintillator "s%d" :collection "cebr3-2x2" :theta 90 :distance %d)`, i, 60+i)
			results[i], errs[i] = app.Build(src)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			if !strings.Contains(err.Error(), "superseded") {
				t.Errorf("build %d: unexpected error: %v", i, err)
			}
			continue
		}
		if len(results[i].Sensitive) != 1 {
			t.Errorf("build %d: expected 1 sensitive volume, got %d", i, len(results[i].Sensitive))
		}
	}
}

// ---------------------------------------------------------------------------
// 5. Commands.
// ---------------------------------------------------------------------------

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "detgeom.toml")
	if err := os.WriteFile(cfg, []byte("[mesh]\ncells = 24\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--config", cfg))
	err := root.Execute()
	return out.String(), err
}

func TestCommandBuild(t *testing.T) {
	out, err := run(t, "build", "examples/clover_ring.lisp")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{"clover1", "ge_zero", "2 clover, 2 coaxial", "10 sensitive"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary does not contain %q:\n%s", want, out)
		}
	}
}

func TestCommandBuildReportsEvalErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lisp")
	if err := os.WriteFile(path, []byte(`(clover "c" :collection "clover-nowhere")`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "build", path); err == nil {
		t.Fatal("expected the build command to fail")
	}
}

func TestCommandExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stl")
	if _, err := run(t, "export", "examples/scintillators.lisp", "-o", dir, "--sensitive-only"); err != nil {
		t.Fatalf("export: %v", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.stl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 STL files, got %v", files)
	}
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
		t.Errorf("manifest: %v", err)
	}
}

func TestCommandProfile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "molly.png")
	html := filepath.Join(dir, "molly.html")
	dxf := filepath.Join(dir, "molly.dxf")

	out, err := run(t, "profile", "--collection", "coaxial-molly", "--png", png, "--html", html, "--dxf", dxf)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !strings.Contains(out, "optimized") {
		t.Errorf("report does not list the optimized profile:\n%s", out)
	}
	for _, p := range []string{png, html, dxf} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("%s was not written: %v", p, err)
		}
	}
}

func TestCommandTree(t *testing.T) {
	out, err := run(t, "tree", "examples/scintillators.lisp")
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !strings.HasPrefix(out, "digraph placements {") {
		t.Errorf("expected DOT on stdout, got:\n%s", out)
	}
	if strings.Count(out, "fillcolor=lightblue") != 3 {
		t.Errorf("expected 3 sensitive nodes in:\n%s", out)
	}
}

func TestCommandMaterials(t *testing.T) {
	out, err := run(t, "materials")
	if err != nil {
		t.Fatalf("materials: %v", err)
	}
	for _, want := range []string{"G4_Ge", "LaBr3_Ce", "G4_POLYETHYLENE"} {
		if !strings.Contains(out, want) {
			t.Errorf("material list does not contain %s", want)
		}
	}
}

func TestCommandBadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(cfg, []byte("[mesh]\ncels = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"materials", "--config", cfg})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "mesh.cels") {
		t.Fatalf("expected an unknown-key error, got %v", err)
	}
}

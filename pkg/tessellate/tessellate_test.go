package tessellate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
	"github.com/chazu/detgeom/pkg/kernel/kerneltest"
	"github.com/chazu/detgeom/pkg/kernel/sdfx"
	"github.com/chazu/detgeom/pkg/material"
	"github.com/chazu/detgeom/pkg/scene"
	"github.com/chazu/detgeom/pkg/tessellate"
)

// newWorld returns an empty world on the given kernel.
func newWorld(t *testing.T, k kernel.Kernel) *scene.World {
	t.Helper()
	tbl, err := material.NewTable()
	if err != nil {
		t.Fatalf("material table: %v", err)
	}
	w, err := scene.New(k, tbl)
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	return w
}

// placeCube creates a cube of germanium and places it at pos in parent.
func placeCube(t *testing.T, w *scene.World, name string, side float64, pos geom.Vec, parent *scene.Volume) *scene.Volume {
	t.Helper()
	s, err := w.Box(name+"_solid", side, side, side)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	mat, err := w.ResolveMaterial("G4_Ge")
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	v, err := w.Volume(s, mat, name)
	if err != nil {
		t.Fatalf("Volume: %v", err)
	}
	if _, err := w.Place(v, geom.Translate(pos), parent, name); err != nil {
		t.Fatalf("Place: %v", err)
	}
	return v
}

// centroid averages the mesh vertices.
func centroid(m *kernel.Mesh) geom.Vec {
	var c geom.Vec
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		c.X += float64(m.Vertices[i*3])
		c.Y += float64(m.Vertices[i*3+1])
		c.Z += float64(m.Vertices[i*3+2])
	}
	return geom.Vec{X: c.X / float64(n), Y: c.Y / float64(n), Z: c.Z / float64(n)}
}

func near(c, want geom.Vec, tol float64) bool {
	return abs(c.X-want.X) <= tol && abs(c.Y-want.Y) <= tol && abs(c.Z-want.Z) <= tol
}

func TestSingleVolume(t *testing.T) {
	w := newWorld(t, kerneltest.New())
	placeCube(t, w, "crystal", 50, geom.Vec{X: 200, Y: 100, Z: 50}, nil)

	meshes, err := tessellate.Tessellate(context.Background(), w)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.PartName != "crystal" {
		t.Errorf("expected PartName %q, got %q", "crystal", m.PartName)
	}
	if m.Material != "G4_Ge" {
		t.Errorf("expected Material %q, got %q", "G4_Ge", m.Material)
	}
	if m.TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
	if c := centroid(m); !near(c, geom.Vec{X: 200, Y: 100, Z: 50}, 1e-3) {
		t.Errorf("centroid = %v, expected (200, 100, 50)", c)
	}
}

func TestNestedTransformsCompose(t *testing.T) {
	w := newWorld(t, kerneltest.New())
	outer := placeCube(t, w, "end_cap", 200, geom.Vec{X: 100}, nil)
	placeCube(t, w, "crystal", 50, geom.Vec{Y: 50}, outer)

	meshes, err := tessellate.Tessellate(context.Background(), w)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].PartName != "end_cap" || meshes[1].PartName != "crystal" {
		t.Fatalf("unexpected order %q, %q", meshes[0].PartName, meshes[1].PartName)
	}
	if c := centroid(meshes[1]); !near(c, geom.Vec{X: 100, Y: 50}, 1e-3) {
		t.Errorf("crystal centroid = %v, expected (100, 50, 0)", c)
	}
}

func TestSensitiveOnly(t *testing.T) {
	w := newWorld(t, kerneltest.New())
	placeCube(t, w, "shield", 80, geom.Vec{X: -300}, nil)
	crystal := placeCube(t, w, "crystal", 50, geom.Vec{X: 300}, nil)
	if err := w.RegisterSensitive(crystal); err != nil {
		t.Fatalf("RegisterSensitive: %v", err)
	}

	all, err := tessellate.Tessellate(context.Background(), w)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 meshes, got %d", len(all))
	}

	sens, err := tessellate.Tessellate(context.Background(), w, tessellate.SensitiveOnly())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(sens) != 1 || sens[0].PartName != "crystal" {
		t.Fatalf("expected only the crystal, got %d meshes", len(sens))
	}
}

func TestOrderIndependentOfWorkers(t *testing.T) {
	w := newWorld(t, kerneltest.New())
	for i := 0; i < 16; i++ {
		placeCube(t, w, fmt.Sprintf("leaf_%02d", i), 10, geom.Vec{X: float64(i) * 20}, nil)
	}

	for _, workers := range []int{1, 4, 32} {
		meshes, err := tessellate.Tessellate(context.Background(), w, tessellate.WithWorkers(workers))
		if err != nil {
			t.Fatalf("workers=%d: Tessellate failed: %v", workers, err)
		}
		if len(meshes) != 16 {
			t.Fatalf("workers=%d: expected 16 meshes, got %d", workers, len(meshes))
		}
		for i, m := range meshes {
			if want := fmt.Sprintf("leaf_%02d", i); m.PartName != want {
				t.Errorf("workers=%d: mesh %d is %q, want %q", workers, i, m.PartName, want)
			}
		}
	}
}

func TestEmptyWorld(t *testing.T) {
	w := newWorld(t, kerneltest.New())

	meshes, err := tessellate.Tessellate(context.Background(), w)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
}

func TestCancelled(t *testing.T) {
	w := newWorld(t, kerneltest.New())
	placeCube(t, w, "crystal", 50, geom.Vec{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tessellate.Tessellate(ctx, w)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSdfxBox(t *testing.T) {
	w := newWorld(t, sdfx.New(sdfx.WithMeshCells(32)))
	placeCube(t, w, "crystal", 100, geom.Vec{X: 200, Y: 100, Z: 50}, nil)

	meshes, err := tessellate.Tessellate(context.Background(), w)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}

	// Marching cubes is approximate; the centroid only has to land near
	// the placement.
	const tol = 20.0
	if c := centroid(m); !near(c, geom.Vec{X: 200, Y: 100, Z: 50}, tol) {
		t.Errorf("centroid = %v, expected near (200, 100, 50)", c)
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

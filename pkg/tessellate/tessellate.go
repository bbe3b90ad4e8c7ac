// Package tessellate walks a built scene and produces triangle meshes
// using the scene's geometry kernel. One mesh is produced per placement.
package tessellate

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/kernel"
	"github.com/chazu/detgeom/pkg/scene"
)

type options struct {
	sensitiveOnly bool
	workers       int
	logger        *log.Logger
}

// Option configures Tessellate.
type Option func(*options)

// SensitiveOnly limits the output to registered sensitive volumes.
func SensitiveOnly() Option {
	return func(o *options) { o.sensitiveOnly = true }
}

// WithWorkers sets how many volumes are meshed at once. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger progress is reported to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// item is one placement waiting to be meshed.
type item struct {
	placement *scene.Placement
	global    geom.Transform
}

// Tessellate meshes every placed volume of w in world coordinates. The
// world volume itself is skipped. Meshes come back in placement-tree
// order whatever the number of workers. The scene is never mutated.
func Tessellate(ctx context.Context, w *scene.World, opts ...Option) ([]*kernel.Mesh, error) {
	if w == nil {
		return nil, nil
	}
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}
	if o.workers < 1 {
		o.workers = 1
	}

	var items []item
	err := w.Walk(func(p *scene.Placement, global geom.Transform, depth int) error {
		if o.sensitiveOnly && !w.IsSensitive(p.Volume()) {
			return nil
		}
		items = append(items, item{placement: p, global: global})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tessellate: walk: %w", err)
	}

	start := time.Now()
	meshes := make([]*kernel.Mesh, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := meshPlacement(w.Kernel(), it)
			if err != nil {
				return err
			}
			meshes[i] = m
			o.logger.Debug("meshed", "part", m.PartName, "triangles", m.TriangleCount())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Info("tessellation done", "meshes", len(meshes), "elapsed", time.Since(start).Round(time.Millisecond))
	return meshes, nil
}

// meshPlacement moves the placement's solid into the world frame and
// meshes it.
func meshPlacement(k kernel.Kernel, it item) (*kernel.Mesh, error) {
	p := it.placement
	solid, err := k.Transform(p.Volume().Solid().Shape(), it.global)
	if err != nil {
		return nil, fmt.Errorf("tessellate: transform of %s failed: %w", p.Name(), err)
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", p.Name(), err)
	}
	mesh.PartName = p.Name()
	if mat := p.Volume().Material(); mat != nil {
		mesh.Material = mat.Name
	}
	return mesh, nil
}

package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/chazu/detgeom/pkg/config"
	"github.com/chazu/detgeom/pkg/errors"
	"github.com/chazu/detgeom/pkg/render"
)

// DefaultConfigFile is read when --config is not given. A missing file
// means the built-in defaults.
const DefaultConfigFile = "detgeom.toml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if stderrors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, styleError.Render(iconError)+" "+err.Error())
		os.Exit(1)
	}
}

// cli carries the state shared by every command.
type cli struct {
	verbose    bool
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "detgeom",
		Short:         "Build gamma-ray detector array geometry from a catalogue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if c.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))

			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", DefaultConfigFile, "run configuration (TOML)")

	root.AddCommand(c.newBuildCmd())
	root.AddCommand(c.newExportCmd())
	root.AddCommand(c.newProfileCmd())
	root.AddCommand(c.newTreeCmd())
	root.AddCommand(c.newMaterialsCmd())
	return root
}

func (c *cli) app(cmd *cobra.Command) *App {
	return NewApp(c.cfg, loggerFromContext(cmd.Context()))
}

// build evaluates and builds a catalogue file, printing DSL errors.
func (c *cli) build(cmd *cobra.Command, path string) (*App, *BuildResult, error) {
	a := c.app(cmd)
	res, err := a.BuildFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Errors) > 0 {
		writeEvalErrors(cmd.ErrOrStderr(), res.Errors)
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "%s: %d error(s)", path, len(res.Errors))
	}
	return a, res, nil
}

func (c *cli) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <catalogue>",
		Short: "Build a catalogue and summarize the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(loggerFromContext(cmd.Context()))
			_, res, err := c.build(cmd, args[0])
			if err != nil {
				return err
			}
			prog.done("built " + args[0])
			writeBuildSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func (c *cli) newExportCmd() *cobra.Command {
	var (
		dir           string
		sensitiveOnly bool
	)
	cmd := &cobra.Command{
		Use:   "export <catalogue>",
		Short: "Mesh a built catalogue into one STL file per volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			a, res, err := c.build(cmd, args[0])
			if err != nil {
				return err
			}
			prog := newProgress(logger)
			m, err := a.Export(cmd.Context(), res, dir, sensitiveOnly)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("wrote %d meshes to %s", len(m.Parts), dir))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "out", "output directory")
	cmd.Flags().BoolVar(&sensitiveOnly, "sensitive-only", false, "export only sensitive volumes")
	return cmd
}

func (c *cli) newProfileCmd() *cobra.Command {
	var name, pngPath, htmlPath, dxfPath string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Compare a crystal's dense profile with its optimized polycone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app(cmd).Profile(name)
			if err != nil {
				return err
			}
			writeProfileReport(cmd.OutOrStdout(), p)

			if pngPath != "" {
				plt, err := render.ProfilePlot(p.Dense, p.Optimized, name)
				if err != nil {
					return err
				}
				w := vg.Length(c.cfg.Plot.Width) * vg.Inch
				h := vg.Length(c.cfg.Plot.Height) * vg.Inch
				if err := render.SavePlot(plt, pngPath, w, h); err != nil {
					return err
				}
			}
			if htmlPath != "" {
				if err := writeFile(htmlPath, func(f *os.File) error {
					return render.ProfileChart(f, p.Dense, p.Optimized, name)
				}); err != nil {
					return err
				}
			}
			if dxfPath != "" {
				if err := render.WriteProfileDXF(dxfPath, p.Dense, p.Optimized); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "collection", "coaxial-tunl-60", "coaxial collection name")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a plot (.png, .svg or .pdf)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an interactive chart")
	cmd.Flags().StringVar(&dxfPath, "dxf", "", "write the half section as DXF")
	return cmd
}

func (c *cli) newTreeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tree <catalogue>",
		Short: "Render the placement tree of a built catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := c.build(cmd, args[0])
			if err != nil {
				return err
			}

			if out == "" || strings.EqualFold(filepath.Ext(out), ".dot") {
				dot, err := render.TreeDOT(res.World)
				if err != nil {
					return err
				}
				if out == "" {
					_, err = fmt.Fprint(cmd.OutOrStdout(), dot)
					return err
				}
				return os.WriteFile(out, []byte(dot), 0o644)
			}

			svg, err := render.TreeSVG(cmd.Context(), res.World)
			if err != nil {
				return err
			}
			return os.WriteFile(out, svg, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (.svg or .dot); DOT on stdout when empty")
	return cmd
}

func (c *cli) newMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List the material table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mats, err := c.app(cmd).Materials()
			if err != nil {
				return err
			}
			writeMaterials(cmd.OutOrStdout(), mats)
			return nil
		},
	}
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

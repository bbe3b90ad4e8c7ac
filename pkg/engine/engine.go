// Package engine evaluates detector catalogues written in a small Lisp
// dialect. Every evaluation runs in a fresh zygomys sandbox and produces an
// array.Catalogue; nothing is built until the catalogue is handed to an
// array.Assembler.
//
// A catalogue reads like this:
//
//	(def ring 125)
//	(clover "clover1" :collection "clover-yale" :theta 90 :phi 0 :distance ring
//	        :filters (list (filter "G4_Cu" 1) (filter "G4_Pb" 0.5)))
//	(coaxial "zero" :collection "coaxial-zero-degree" :theta 0 :distance 300 :dewar true)
//	(target "mo92")
//
// Angles are degrees and lengths millimeters; (inch x) converts.
package engine

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/detgeom/pkg/array"
)

// EvalError is a non-fatal error in user source: a parse error, a runtime
// error or a catalogue that fails validation.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; only
// the result of the most recent Evaluate call is delivered.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	logger     *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger evaluation summaries go to.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs source and returns the catalogue it declares.
//
// Return semantics:
//   - On success: catalogue + nil errors + nil error
//   - On parse, evaluation or validation failure: nil + eval errors + nil
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(source string) (*array.Catalogue, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		cat, evalErrs, err := e.evaluate(source)
		ch <- evalResult{catalogue: cat, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
}

func (e *Engine) evaluate(source string) (*array.Catalogue, []EvalError, error) {
	// Empty source declares an empty catalogue.
	if strings.TrimSpace(source) == "" {
		return &array.Catalogue{}, nil, nil
	}

	// The sandbox keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	cb := newCatalogueBuilder()
	registerBuiltins(env, cb)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	cat := cb.catalogue()
	if err := cat.Validate(); err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	e.logger.Debug("catalogue evaluated", "detectors", len(cat.Entries),
		"targets", len(cat.Targets), "use_target", cat.UseTarget)
	return cat, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

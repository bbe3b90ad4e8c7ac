package engine

import (
	"fmt"
	"sort"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/detgeom/pkg/array"
	"github.com/chazu/detgeom/pkg/collection"
	"github.com/chazu/detgeom/pkg/detector"
	"github.com/chazu/detgeom/pkg/geom"
	"github.com/chazu/detgeom/pkg/target"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites catalogue source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and never collide with user definitions.
//  2. kebab-case identifiers become snake_case (use-target -> use_target);
//     zygomys reads a hyphen inside an identifier as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"')
			result = append(result, b[i:j]...)
			i = j
		case b[i] == '`':
			j := skipQuoted(b, i, '`')
			result = append(result, b[i:j]...)
			i = j
		case b[i] == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, ':', '=')
			i += 2
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			// Only between identifier characters; "(- 10 5)" keeps its minus.
			result = append(result, '_')
			i++
		default:
			result = append(result, b[i])
			i++
		}
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opened at b[i].
// Backslash escapes only apply to double quotes.
func skipQuoted(b []byte, i int, quote byte) int {
	i++
	for i < len(b) && b[i] != quote {
		if quote == '"' && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 is a position in millimeters.
type sexpVec3 struct {
	vec geom.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpLayer is a filter or wrap waiting to be attached to a detector.
type sexpLayer struct {
	kind  string
	layer detector.Layer
}

func (l *sexpLayer) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q %g)", l.kind, l.layer.Material, l.layer.Thickness)
}
func (l *sexpLayer) Type() *zygo.RegisteredType { return nil }

// sexpDetector is the value of a detector declaration.
type sexpDetector struct {
	name string
	kind string
}

func (d *sexpDetector) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", d.kind, d.name)
}
func (d *sexpDetector) Type() *zygo.RegisteredType { return nil }

// sexpTarget is the value of a target declaration.
type sexpTarget struct {
	name string
}

func (t *sexpTarget) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(target %q)", t.name)
}
func (t *sexpTarget) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates keyword arguments from positional ones.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// only rejects keywords outside allowed.
func (pa kwArgs) only(allowed ...string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var unknown []string
	for k := range pa.kw {
		if !ok[k] {
			unknown = append(unknown, ":"+k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown keyword %s", strings.Join(unknown, ", "))
}

// float sets *dst to scale times the keyword's value, if present.
func (pa kwArgs) float(key string, scale float64, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f * scale
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool accepts true, false and nil.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a position from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toLayers extracts a list of layers that must all be of the given kind.
func toLayers(s zygo.Sexp, kind string) ([]detector.Layer, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	layers := make([]detector.Layer, 0, len(items))
	for i, item := range items {
		l, ok := item.(*sexpLayer)
		if !ok || l.kind != kind {
			return nil, fmt.Errorf("entry %d: expected (%s ...), got %s", i, kind, item.SexpString(nil))
		}
		layers = append(layers, l.layer)
	}
	return layers, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// detectorKeywords are accepted by clover, coaxial and scintillator.
var detectorKeywords = []string{
	"collection", "theta", "phi", "distance", "rotation",
	"dewar", "filters", "wraps", "origin",
}

// registerBuiltins installs the catalogue builtins into env. Declarations
// are recorded in cb in source order.
//
// Source must go through preprocessSource first so that :keyword tokens
// arrive as recognizable strings.
func registerBuiltins(env *zygo.Zlisp, cb *catalogueBuilder) {

	// -----------------------------------------------------------------------
	// (vec3 x y z)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (inch 2.5) -> 63.5
	// -----------------------------------------------------------------------
	env.AddFunction("inch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("inch requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("inch: %w", err)
		}
		return &zygo.SexpFloat{Val: f * geom.Inch}, nil
	})

	// -----------------------------------------------------------------------
	// (deg 35 15 52) -> 35.2644: degrees, arc minutes, arc seconds
	// -----------------------------------------------------------------------
	env.AddFunction("deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 3 {
			return zygo.SexpNull, fmt.Errorf("deg takes degrees and optional minutes and seconds, got %d arguments", len(args))
		}
		total := 0.0
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("deg: %w", err)
			}
			if i > 0 && f < 0 {
				return zygo.SexpNull, fmt.Errorf("deg: minutes and seconds must not be negative")
			}
			total += f / [3]float64{1, 60, 3600}[i]
		}
		return &zygo.SexpFloat{Val: total}, nil
	})

	// -----------------------------------------------------------------------
	// (filter "G4_Cu" 1.5 :radius 40)
	// (wrap "G4_Pb" 2)
	// -----------------------------------------------------------------------
	env.AddFunction("filter", layerBuiltin("filter", "radius"))
	env.AddFunction("wrap", layerBuiltin("wrap"))

	// -----------------------------------------------------------------------
	// (clover "name" :collection "clover-yale" :theta 90 :phi 45 :distance 120
	//         :rotation 0 :dewar true :filters (list ...) :wraps (list ...)
	//         :origin (vec3 0 0 0))
	// -----------------------------------------------------------------------
	for _, kind := range []string{"clover", "coaxial", "scintillator"} {
		env.AddFunction(kind, detectorBuiltin(kind, cb))
	}

	// -----------------------------------------------------------------------
	// (target "mo92" :origin (vec3 0 0 5))
	// -----------------------------------------------------------------------
	env.AddFunction("target", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("origin"); err != nil {
			return zygo.SexpNull, fmt.Errorf("target: %w", err)
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("target requires a preset name")
		}
		preset, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("target: name: %w", err)
		}
		t, ok := target.Lookup(preset)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("target: unknown preset %q (known: %s)",
				preset, strings.Join(target.Names(), ", "))
		}
		src := array.Source{Target: t}
		if v, ok := pa.kw["origin"]; ok {
			if src.Origin, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("target: origin: %w", err)
			}
		}
		if err := cb.addTarget(src); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpTarget{name: t.Name()}, nil
	})

	// -----------------------------------------------------------------------
	// (use-target false)
	//
	// Registered as "use_target"; preprocessSource rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("use_target", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("use-target requires exactly 1 argument, got %d", len(args))
		}
		on, err := toBool(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("use-target: %w", err)
		}
		cb.useTarget = &on
		return args[0], nil
	})
}

func layerBuiltin(kind string, keywords ...string) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only(keywords...); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a material and a thickness", kind)
		}
		var l detector.Layer
		var err error
		if l.Material, err = toString(pa.positional[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: material: %w", kind, err)
		}
		if l.Thickness, err = toFloat64(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: thickness: %w", kind, err)
		}
		if err := pa.float("radius", 1, &l.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
		}
		return &sexpLayer{kind: kind, layer: l}, nil
	}
}

func detectorBuiltin(kind string, cb *catalogueBuilder) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires a name", kind)
		}
		instName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", kind, err)
		}
		entry, err := parseDetector(kind, instName, pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s %s: %w", kind, instName, err)
		}
		if err := cb.addEntry(entry); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpDetector{name: instName, kind: kind}, nil
	}
}

func parseDetector(kind, instName string, pa kwArgs) (array.Entry, error) {
	if err := pa.only(detectorKeywords...); err != nil {
		return array.Entry{}, err
	}
	v, ok := pa.kw["collection"]
	if !ok {
		return array.Entry{}, fmt.Errorf(":collection is required")
	}
	coll, err := toString(v)
	if err != nil {
		return array.Entry{}, fmt.Errorf("collection: %w", err)
	}
	fam, ok := collection.Lookup(coll)
	if !ok {
		return array.Entry{}, fmt.Errorf("unknown collection %q (known: %s)", coll, strings.Join(collection.Names(), ", "))
	}
	if fam.Kind() != kind {
		return array.Entry{}, fmt.Errorf("collection %q is a %s", coll, fam.Kind())
	}

	entry := array.Entry{Instance: detector.Instance{Name: instName, Family: fam}}
	p := &entry.Placement
	for _, f := range []struct {
		key   string
		scale float64
		dst   *float64
	}{
		{"theta", geom.Degree, &p.Theta},
		{"phi", geom.Degree, &p.Phi},
		{"rotation", geom.Degree, &p.Intrinsic},
		{"distance", geom.Millimeter, &p.Distance},
	} {
		if err := pa.float(f.key, f.scale, f.dst); err != nil {
			return array.Entry{}, err
		}
	}

	if v, ok := pa.kw["dewar"]; ok {
		on, err := toBool(v)
		if err != nil {
			return array.Entry{}, fmt.Errorf("dewar: %w", err)
		}
		if err := setDewar(fam, on); err != nil {
			return array.Entry{}, err
		}
	}
	if v, ok := pa.kw["filters"]; ok {
		if entry.Filters, err = toLayers(v, "filter"); err != nil {
			return array.Entry{}, fmt.Errorf("filters: %w", err)
		}
	}
	if v, ok := pa.kw["wraps"]; ok {
		if entry.Wraps, err = toLayers(v, "wrap"); err != nil {
			return array.Entry{}, fmt.Errorf("wraps: %w", err)
		}
	}
	if v, ok := pa.kw["origin"]; ok {
		o, err := toVec3(v)
		if err != nil {
			return array.Entry{}, fmt.Errorf("origin: %w", err)
		}
		entry.Origin = &o
	}
	return entry, nil
}

// setDewar switches the dewar of a germanium family on or off. A preset
// that already carries a dewar keeps its own when switched on.
func setDewar(fam detector.Family, on bool) error {
	pick := func(cur *detector.Dewar) *detector.Dewar {
		switch {
		case !on:
			return nil
		case cur != nil:
			return cur
		}
		return collection.Dewar()
	}
	switch f := fam.(type) {
	case *detector.Clover:
		f.Dewar = pick(f.Dewar)
	case *detector.Coaxial:
		f.Dewar = pick(f.Dewar)
	default:
		if on {
			return fmt.Errorf("a %s detector has no dewar", fam.Kind())
		}
	}
	return nil
}

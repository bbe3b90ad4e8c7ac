package scene

import "fmt"

// Severity indicates whether a validation finding fails a build or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // fails the build
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string   // volume or placement name (empty if world-level)
	Message  string   // human-readable description
	Severity Severity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// Errors filters findings down to those with SeverityError.
func Errors(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

// Validate runs the structural checks on a finished world. An empty slice
// means nothing was found. It never mutates the world.
func Validate(w *World) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateSensitive(w)...)
	errs = append(errs, validateUnplaced(w)...)
	errs = append(errs, validateNames(w)...)
	errs = append(errs, validateContainment(w)...)
	return errs
}

// validateSensitive checks that every sensitive volume is actually placed
// somewhere in the tree.
func validateSensitive(w *World) []ValidationError {
	var errs []ValidationError
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range w.sensitive {
		if v.placed == 0 {
			errs = append(errs, ValidationError{
				Subject:  v.name,
				Message:  "sensitive volume is never placed",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateUnplaced reports volumes created but never placed.
func validateUnplaced(w *World) []ValidationError {
	var errs []ValidationError
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range w.volumes {
		if v == w.root || v.placed > 0 || w.registered[v] {
			continue
		}
		errs = append(errs, ValidationError{
			Subject:  v.name,
			Message:  "volume is never placed",
			Severity: SeverityWarning,
		})
	}
	return errs
}

// validateNames reports sibling placements sharing a name.
func validateNames(w *World) []ValidationError {
	var errs []ValidationError
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range w.volumes {
		seen := make(map[string]bool, len(v.daughters))
		for _, d := range v.daughters {
			if seen[d.name] {
				errs = append(errs, ValidationError{
					Subject:  d.name,
					Message:  fmt.Sprintf("duplicate placement name inside %s", v.name),
					Severity: SeverityWarning,
				})
			}
			seen[d.name] = true
		}
	}
	return errs
}

// validateContainment reports daughters of the world volume whose
// bounding box leaves the world.
func validateContainment(w *World) []ValidationError {
	var errs []ValidationError
	half := w.size / 2
	for _, p := range w.Children(w.root) {
		lo, hi := p.volume.solid.shape.BoundingBox()
		for _, c := range corners(lo, hi) {
			q := p.transform.Apply(c)
			if abs(q.X) > half || abs(q.Y) > half || abs(q.Z) > half {
				errs = append(errs, ValidationError{
					Subject:  p.name,
					Message:  "extends outside the world volume",
					Severity: SeverityError,
				})
				break
			}
		}
	}
	return errs
}

// Validate runs Validate on w.
func (w *World) Validate() []ValidationError {
	return Validate(w)
}

package scene

import "github.com/chazu/detgeom/pkg/errors"

// RegisterSensitive appends volumes to the sensitive-volume registry.
// The batch is all-or-nothing: if any volume is nil, foreign to this world
// or already registered, nothing is appended.
func (w *World) RegisterSensitive(volumes ...*Volume) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[*Volume]bool, len(volumes))
	for _, v := range volumes {
		switch {
		case !w.ownsVolume(v):
			return errors.New(errors.ErrCodeInternal, "sensitive volume does not belong to this world")
		case w.registered[v] || seen[v]:
			return errors.New(errors.ErrCodeInvalidConfig, "volume %s is already registered as sensitive", v.name)
		}
		seen[v] = true
	}
	for _, v := range volumes {
		w.registered[v] = true
		w.sensitive = append(w.sensitive, v)
	}
	return nil
}

// Sensitive returns the registered sensitive volumes in registration order.
func (w *World) Sensitive() []*Volume {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Volume(nil), w.sensitive...)
}

// IsSensitive reports whether v has been registered.
func (w *World) IsSensitive(v *Volume) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registered[v]
}

package errors

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidDimension, "radius %d", 5)

	if err.Code != ErrCodeInvalidDimension {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidDimension)
	}
	if err.Error() != "INVALID_DIMENSION: radius 5" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("kernel exploded")
	err := Wrap(ErrCodeInternal, cause, "revolve %s", "crystal")

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap() did not return the cause")
	}
	want := "INTERNAL_ERROR: revolve crystal: kernel exploded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{"matching code", New(ErrCodeUnknownMaterial, "x"), ErrCodeUnknownMaterial, true},
		{"other code", New(ErrCodeUnknownMaterial, "x"), ErrCodeInvalidProfile, false},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(ErrCodeInvalidProfile, "x")), ErrCodeInvalidProfile, true},
		{"plain error", errors.New("plain"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWithSubject(t *testing.T) {
	base := New(ErrCodeUnknownMaterial, "material %q not found", "G4_Unobtainium")

	err := WithSubject(base, "clover_3")
	if GetCode(err) != ErrCodeUnknownMaterial {
		t.Errorf("code = %v, want %v", GetCode(err), ErrCodeUnknownMaterial)
	}
	if SubjectOf(err) != "clover_3" {
		t.Errorf("subject = %q, want clover_3", SubjectOf(err))
	}
	if base.Subject != "" {
		t.Error("WithSubject must not modify its argument")
	}

	nested := WithSubject(err, "array")
	if SubjectOf(nested) != "array: clover_3" {
		t.Errorf("nested subject = %q", SubjectOf(nested))
	}

	same := WithSubject(err, "clover_3")
	if SubjectOf(same) != "clover_3" {
		t.Errorf("repeated subject = %q", SubjectOf(same))
	}

	plain := WithSubject(errors.New("boom"), "coax")
	if GetCode(plain) != ErrCodeInternal {
		t.Errorf("plain error code = %v, want %v", GetCode(plain), ErrCodeInternal)
	}

	if WithSubject(nil, "x") != nil {
		t.Error("WithSubject(nil) should be nil")
	}
}

func TestPositive(t *testing.T) {
	for _, v := range []float64{0, -1, math.NaN()} {
		if err := Positive("thickness", v); !Is(err, ErrCodeInvalidDimension) {
			t.Errorf("Positive(%v) = %v, want INVALID_DIMENSION", v, err)
		}
	}
	if err := Positive("thickness", 0.5); err != nil {
		t.Errorf("Positive(0.5) = %v, want nil", err)
	}
}

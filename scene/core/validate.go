// ABOUTME: Field-level validation of function names and kind-specific params.
// ABOUTME: Link resolution against the scene lives in the decision step, not here.
package core

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MinPoints and MaxPoints bound the size of point and coefficient tables.
	MinPoints = 2
	MaxPoints = 50

	// RealLimit bounds the magnitude of every float field.
	RealLimit = 9.9e10
)

// ValidateName checks that name can be used as a quoted deck identifier.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\"\n\r") {
		return fmt.Errorf("%w: %q contains a quote or line break", ErrInvalidName, name)
	}
	return nil
}

// ValidateParams checks the fields of p for kind k.
func ValidateParams(k Kind, p Params) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	if !ParamsFit(k, p) {
		return newInvalidParamsError(k, "params", "got %T", p)
	}

	switch v := p.(type) {
	case ConstParams:
		return checkReal(k, "constant", v.Constant)

	case ExpLogParams:
		if err := checkReal(k, "base", v.Base); err != nil {
			return err
		}
		if err := checkReal(k, "coefficient", v.Coefficient); err != nil {
			return err
		}
		return checkReal(k, "multiplier", v.Multiplier)

	case PowParams:
		return checkReal(k, "power", v.Power)

	case LinearParams:
		for _, f := range []struct {
			name string
			v    float64
		}{{"x1", v.X1}, {"x2", v.X2}, {"y1", v.Y1}, {"y2", v.Y2}} {
			if err := checkReal(k, f.name, f.v); err != nil {
				return err
			}
		}
		return nil

	case TableParams:
		if len(v.X) != len(v.Y) {
			return newInvalidParamsError(k, "y", "has %d values for %d points", len(v.Y), len(v.X))
		}
		if err := checkPointCount(k, "n", len(v.X)); err != nil {
			return err
		}
		if err := checkReals(k, "x", v.X); err != nil {
			return err
		}
		return checkReals(k, "y", v.Y)

	case ChebychevParams:
		if err := checkReal(k, "lower_bound", v.LowerBound); err != nil {
			return err
		}
		if err := checkReal(k, "upper_bound", v.UpperBound); err != nil {
			return err
		}
		if err := checkPointCount(k, "n", len(v.C)); err != nil {
			return err
		}
		return checkReals(k, "c", v.C)

	case BinaryParams:
		if v.F1 == "" {
			return newInvalidParamsError(k, "f1", "must name a function")
		}
		if v.F2 == "" {
			return newInvalidParamsError(k, "f2", "must name a function")
		}
		return nil

	default:
		return newInvalidParamsError(k, "params", "got %T", p)
	}
}

// CheckPointCount reports ErrPointCount when n is outside [MinPoints, MaxPoints].
func CheckPointCount(n int) error {
	if n < MinPoints || n > MaxPoints {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrPointCount, n, MinPoints, MaxPoints)
	}
	return nil
}

func checkPointCount(k Kind, field string, n int) error {
	if err := CheckPointCount(n); err != nil {
		return fmt.Errorf("%w: %w", newInvalidParamsError(k, field, "%d not in [%d,%d]", n, MinPoints, MaxPoints), err)
	}
	return nil
}

func checkReal(k Kind, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newInvalidParamsError(k, field, "must be finite")
	}
	if v < -RealLimit || v > RealLimit {
		return newInvalidParamsError(k, field, "%s outside [-9.9e10, 9.9e10]", FormatReal(v))
	}
	return nil
}

func checkReals(k Kind, field string, vs []float64) error {
	for i, v := range vs {
		if err := checkReal(k, fmt.Sprintf("%s[%d]", field, i), v); err != nil {
			return err
		}
	}
	return nil
}

package errors

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("op", 1.5, 0); err != nil {
		t.Errorf("finite value should pass, got %v", err)
	}
	if err := CheckScalar("op", math.NaN(), 3); err == nil {
		t.Error("NaN should be rejected")
	}
}

func TestCheckMatrix(t *testing.T) {
	clean := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("scale", clean, 2, 2, 0); err != nil {
		t.Errorf("clean matrix should pass, got %v", err)
	}

	dirty := mat.NewDense(2, 2, []float64{1, math.Inf(1), 3, math.NaN()})
	err := CheckMatrix("scale", dirty, 2, 2, 0)
	if err == nil {
		t.Fatal("expected instability error")
	}

	var instab *NumericalInstabilityError
	if !As(err, &instab) {
		t.Fatalf("expected NumericalInstabilityError, got %T", err)
	}
	// only the first offending row is reported
	if len(instab.Values) != 1 {
		t.Errorf("expected 1 value, got %v", instab.Values)
	}
}

func TestStabilizeExp(t *testing.T) {
	if math.IsInf(StabilizeExp(1e6), 0) {
		t.Error("StabilizeExp should not overflow")
	}
	if StabilizeExp(-1e6) != 0 {
		t.Error("StabilizeExp should underflow to 0")
	}
	if math.Abs(StabilizeExp(1)-math.E) > 1e-12 {
		t.Error("StabilizeExp(1) should equal e")
	}
}

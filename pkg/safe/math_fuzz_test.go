package safe

import (
	"math"
	"testing"
)

// FuzzAdd tests checked addition with fuzzing.
func FuzzAdd(f *testing.F) {
	f.Add(int64(0), int64(0))
	f.Add(int64(1), int64(2))
	f.Add(int64(-1), int64(1))
	f.Add(int64(math.MaxInt64), int64(1))
	f.Add(int64(math.MinInt64), int64(-1))

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }() // overflow panic is expected behavior
		got := Add(a, b)
		if got != a+b {
			t.Fatalf("Add(%d, %d) = %d", a, b, got)
		}
	})
}

// FuzzSub tests checked subtraction with fuzzing.
func FuzzSub(f *testing.F) {
	f.Add(int64(0), int64(0))
	f.Add(int64(10), int64(5))
	f.Add(int64(-1), int64(-1))
	f.Add(int64(math.MinInt64), int64(1))
	f.Add(int64(math.MaxInt64), int64(-1))

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }()
		got := Sub(a, b)
		if got != a-b {
			t.Fatalf("Sub(%d, %d) = %d", a, b, got)
		}
	})
}

// FuzzMul tests checked multiplication with fuzzing.
func FuzzMul(f *testing.F) {
	f.Add(int64(0), int64(0))
	f.Add(int64(2), int64(3))
	f.Add(int64(-2), int64(3))
	f.Add(int64(1000000), int64(1000000))
	f.Add(int64(math.MinInt64), int64(-1))

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }()
		got := Mul(a, b)
		if got != a*b {
			t.Fatalf("Mul(%d, %d) = %d", a, b, got)
		}
	})
}

// FuzzDiv tests checked division with fuzzing.
func FuzzDiv(f *testing.F) {
	f.Add(int64(10), int64(2))
	f.Add(int64(-10), int64(2))
	f.Add(int64(100), int64(-5))
	f.Add(int64(math.MaxInt64), int64(1))
	f.Add(int64(math.MinInt64), int64(-1))
	f.Add(int64(1), int64(0))

	f.Fuzz(func(t *testing.T, a, b int64) {
		defer func() { recover() }() // div by zero and MinInt64/-1 panic
		got := Div(a, b)
		if got != a/b {
			t.Fatalf("Div(%d, %d) = %d", a, b, got)
		}
	})
}

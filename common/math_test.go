package common

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -2, -1, 1, -1},
		{"above", 7, 0, 3, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Clamp(c.v, c.lo, c.hi); got != c.want {
				t.Fatalf("Clamp(%v,%v,%v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
			}
		})
	}
	if got := Clamp01(float32(1.5)); got != 1 {
		t.Fatalf("Clamp01(1.5) = %v", got)
	}
}

func TestLerpAndSign(t *testing.T) {
	if got := Lerp(10.0, 20.0, 0.25); got != 12.5 {
		t.Fatalf("Lerp = %v, want 12.5", got)
	}
	for _, c := range []struct{ v, want float64 }{{-3, -1}, {0, 0}, {0.1, 1}} {
		if got := Sign(c.v); got != c.want {
			t.Fatalf("Sign(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

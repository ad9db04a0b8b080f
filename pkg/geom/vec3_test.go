package geom

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 0}
	n := v.Normalize()
	if l := n.Length(); math.Abs(l-1) > 1e-12 {
		t.Errorf("Vec3.Normalize().Length() = %v, want 1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Errorf("normalizing the zero vector should return zero")
	}
}

func TestTriangleNormal(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	got := TriangleNormal(a, b, c)
	want := Vec3{0, 0, 1}
	if got.Distance(want) > 1e-12 {
		t.Errorf("TriangleNormal() = %v, want %v", got, want)
	}
}

func TestTriangleArea(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{2, 0, 0}
	c := Vec3{0, 2, 0}
	if got := TriangleArea(a, b, c); math.Abs(got-2) > 1e-12 {
		t.Errorf("TriangleArea() = %v, want 2", got)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Errorf("finite vector reported non-finite")
	}
	if (Vec3{math.NaN(), 0, 0}).IsFinite() {
		t.Errorf("NaN vector reported finite")
	}
	if (Vec3{0, math.Inf(1), 0}).IsFinite() {
		t.Errorf("Inf vector reported finite")
	}
}

package geo

import "testing"

func TestHaversineMeters_SamePoint(t *testing.T) {
	d := HaversineMeters(24.7136, 46.6753, 24.7136, 46.6753)
	if d > 0.001 {
		t.Errorf("expected ~0 distance for identical points, got %f", d)
	}
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// S1 from the component spec: ~712m apart.
	d := HaversineMeters(24.7136, 46.6753, 24.7200, 46.6753)
	if d < 600 || d > 800 {
		t.Errorf("expected distance near 712m, got %f", d)
	}
}

func TestWithinRadius(t *testing.T) {
	if !WithinRadius(99, 100) {
		t.Error("99 should be within 100")
	}
	if WithinRadius(101, 100) {
		t.Error("101 should not be within 100")
	}
	if !WithinRadius(100, 100) {
		t.Error("boundary distance should count as within radius")
	}
}

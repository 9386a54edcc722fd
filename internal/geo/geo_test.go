package geo

import "testing"

func TestHaversineM(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineM(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100000 || d > 140000 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineMZero(t *testing.T) {
	if d := HaversineM(51.5007, -0.1246, 51.5007, -0.1246); d != 0 {
		t.Fatalf("identical points should be 0 m apart, got %v", d)
	}
}

func TestHaversineMShortSegment(t *testing.T) {
	// ~0.0001 degrees of latitude is roughly 11 m
	d := HaversineM(51.5007, -0.1246, 51.5008, -0.1246)
	if d < 10 || d > 12.5 {
		t.Fatalf("expected ~11 m, got %v", d)
	}
}

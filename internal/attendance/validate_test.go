package attendance

import "testing"

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		name      string
		lat, lng  float64
		accuracyM float64
		wantErr   bool
	}{
		{"valid", 24.7136, 46.6753, 10, false},
		{"lat too high", 91, 0, 0, true},
		{"lat too low", -91, 0, 0, true},
		{"lng too high", 0, 181, 0, true},
		{"lng too low", 0, -181, 0, true},
		{"negative accuracy", 0, 0, -1, true},
		{"boundary lat/lng", 90, 180, 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateCoordinates(c.lat, c.lng, c.accuracyM)
			if c.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

package utils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"shorter than max", "sunset", 10, "sunset"},
		{"exactly max", "sunset", 6, "sunset"},
		{"cut with ellipsis", "a dog running on the beach", 5, "a dog..."},
		{"zero max disables", "whatever", 0, "whatever"},
		{"negative max disables", "whatever", -1, "whatever"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}

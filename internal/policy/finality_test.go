package policy

import "testing"

func TestIsLocked(t *testing.T) {
	fixtures := []struct {
		name   string
		status *StatusRef
		want   bool
	}{
		{"open status", &StatusRef{ID: 1, Name: "Abierto", IsFinal: false}, false},
		{"in-progress status", &StatusRef{ID: 2, Name: "En progreso", IsFinal: false}, false},
		{"closed status", &StatusRef{ID: 3, Name: "Cerrado", IsFinal: true}, true},
		{"cancelled status", &StatusRef{ID: 4, Name: "Cancelado", IsFinal: true}, true},
		{"missing status locks", nil, true},
	}
	for _, tc := range fixtures {
		if got := IsLocked(tc.status); got != tc.want {
			t.Errorf("%s: IsLocked = %v, want %v", tc.name, got, tc.want)
		}
	}
}

package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSearch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Configuración", "configuracion"},
		{"configuracion", "configuracion"},
		{"MANUAL DE INSTALACIÓN", "manual de instalacion"},
		{"camión árbol", "camion arbol"},
		{"señal", "senal"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeSearch(tc.in), "input %q", tc.in)
	}
}

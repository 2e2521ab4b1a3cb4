package fab

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	values := map[string]string{"PROJECT": "My Board", "MPN": "", "DEVICE": "LM358"}
	lookup := func(k string) string { return values[k] }

	tests := []struct {
		in   string
		want string
	}{
		{"{{PROJECT}}", "My Board"},
		{"x_{{PROJECT}}_{{PROJECT}}", "x_My Board_My Board"},
		{"{{MPN or DEVICE}}", "LM358"},
		{"{{MPN or MISSING or \"n/a\"}}", "n/a"},
		{"{{MISSING}}.gbr", ".gbr"},
		{"no placeholders", "no placeholders"},
		{"{{ PROJECT }}", "My Board"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, lookup, nil))
		})
	}

	assert.Equal(t, "out/My_Board.gbr", Substitute("out/{{PROJECT}}.gbr", lookup, CleanFileName))
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "A_B_C", CleanFileName("A  B\tC"))
	assert.Equal(t, "v1.0-rc(2)", CleanFileName("v1.0-rc(2)"))
	assert.Equal(t, "ab", CleanFileName("a/b:"))
	assert.Equal(t, "Mnchen", CleanFileName("München"))
}

func TestResolvePath(t *testing.T) {
	lookup := func(k string) string {
		if k == "VERSION" {
			return "2.1"
		}
		return ""
	}
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "output", "2.1", "x.gbr"), ResolvePath("./output/{{VERSION}}/x.gbr", dir, lookup))
	abs := filepath.Join(dir, "abs", "y.drl")
	assert.Equal(t, abs, ResolvePath(abs, "/elsewhere", lookup))
}

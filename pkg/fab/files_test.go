package fab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrittenFilesDuplicates(t *testing.T) {
	var w WrittenFiles
	assert.NoError(t, w.Err())

	w.Add("/out/a.gbr", "/out/b.gbr")
	w.Add("/out/./a.gbr", "/out/c.gbr", "/out/c.gbr")

	assert.Equal(t, 2, w.Count("/out/a.gbr"))
	assert.Equal(t, 1, w.Count("/out/b.gbr"))
	assert.Equal(t, []string{"/out/a.gbr", "/out/c.gbr"}, w.Duplicates())

	err := w.Err()
	assert.ErrorIs(t, err, ErrDuplicateOutput)
	assert.ErrorContains(t, err, "/out/a.gbr, /out/c.gbr")
}

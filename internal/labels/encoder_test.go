package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitSortsDistinctLabels(t *testing.T) {
	enc := Fit([]string{"Chelsea", "Arsenal", "Chelsea", "Burnley"})

	assert.Equal(t, []string{"Arsenal", "Burnley", "Chelsea"}, enc.Classes())
	assert.Equal(t, 3, enc.Len())

	code, err := enc.Transform("Chelsea")
	require.NoError(t, err)
	assert.Equal(t, 2, code)

	name, err := enc.Inverse(1)
	require.NoError(t, err)
	assert.Equal(t, "Burnley", name)
}

func TestTransformUnseen(t *testing.T) {
	enc := Fit([]string{"Arsenal"})

	_, err := enc.Transform("Wolves")
	assert.ErrorIs(t, err, ErrUnseen)

	_, err = enc.TransformAll([]string{"Arsenal", "Wolves"})
	assert.ErrorIs(t, err, ErrUnseen)

	_, err = enc.Inverse(5)
	assert.Error(t, err)
}

func TestFitIgnoresInputOrder(t *testing.T) {
	a := Fit([]string{"Lyon", "Nice", "Brest"})
	b := Fit([]string{"Brest", "Lyon", "Nice", "Lyon"})
	assert.Equal(t, a.Classes(), b.Classes())
}

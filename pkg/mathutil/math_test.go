package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 20, ClampLimit(-5, 20, 100))
	assert.Equal(t, 50, ClampLimit(50, 20, 100))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
}

func TestUnitNormalize(t *testing.T) {
	v := UnitNormalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := UnitNormalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0}, []float32{0}))
}

func TestMinMaxNormalize(t *testing.T) {
	out := MinMaxNormalize([]float64{2, 4, 6})
	assert.Equal(t, []float64{0, 0.5, 1}, out)

	flat := MinMaxNormalize([]float64{3, 3, 3})
	assert.Equal(t, []float64{0, 0, 0}, flat)

	assert.Nil(t, MinMaxNormalize(nil))

	single := MinMaxNormalize([]float64{math.Pi})
	assert.Equal(t, []float64{0}, single)
}

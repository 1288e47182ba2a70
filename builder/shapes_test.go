package builder

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound6(t *testing.T) {
	assert.Equal(t, 40.735657, round6(40.73565699999))
	assert.Equal(t, -74.0, round6(-74.0000004))
	assert.Equal(t, 40.735657, round6(round6(40.73565699999)))
}

func TestDedupeAndSimplifyShapeOrdersAndDedupes(t *testing.T) {
	points := []seqPoint{
		{seq: 3, lat: 40.3, lon: -74.3},
		{seq: 1, lat: 40.1, lon: -74.1},
		{seq: 2, lat: 40.1, lon: -74.1}, // duplicate of seq 1 once ordered
		{seq: 4, lat: 40.4, lon: -74.4},
	}

	result := dedupeAndSimplifyShape(points, 260)
	assert.Equal(t, [][]float64{
		{40.1, -74.1},
		{40.3, -74.3},
		{40.4, -74.4},
	}, result)
}

func TestDedupeAndSimplifyShapeRoundsBeforeDedupe(t *testing.T) {
	points := []seqPoint{
		{seq: 1, lat: 40.1000000001, lon: -74.1},
		{seq: 2, lat: 40.1000000002, lon: -74.1},
	}
	result := dedupeAndSimplifyShape(points, 260)
	assert.Equal(t, [][]float64{{40.1, -74.1}}, result)
}

func TestDedupeAndSimplifyShapeBudget(t *testing.T) {
	for _, size := range []int{50, 51, 99, 100, 101, 257, 500, 1000, 2603} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			points := make([]seqPoint, size)
			for i := range points {
				points[i] = seqPoint{seq: i, lat: 40 + float64(i)*0.0001, lon: -74}
			}

			result := dedupeAndSimplifyShape(points, 100)
			require.NotEmpty(t, result)
			assert.LessOrEqual(t, len(result), 100)

			first := []float64{round6(points[0].lat), -74}
			last := []float64{round6(points[size-1].lat), -74}
			assert.Equal(t, first, result[0])
			assert.Equal(t, last, result[len(result)-1])
		})
	}
}

func TestDedupeAndSimplifyShapeUnderBudgetUntouched(t *testing.T) {
	points := make([]seqPoint, 80)
	for i := range points {
		points[i] = seqPoint{seq: i, lat: 40 + float64(i)*0.001, lon: -74}
	}
	result := dedupeAndSimplifyShape(points, 100)
	assert.Len(t, result, 80)
}

func TestDedupeAndSimplifyShapeIdempotent(t *testing.T) {
	points := make([]seqPoint, 1000)
	for i := range points {
		points[i] = seqPoint{seq: i, lat: 40 + float64(i)*0.0001, lon: -74 - float64(i)*0.0002}
	}

	once := dedupeAndSimplifyShape(points, 100)

	again := make([]seqPoint, len(once))
	for i, p := range once {
		again[i] = seqPoint{seq: i, lat: p[0], lon: p[1]}
	}
	twice := dedupeAndSimplifyShape(again, 100)

	assert.Equal(t, once, twice)
}

func TestShapeDirectionKeys(t *testing.T) {
	routeOrder := []string{"dir_0", "dir_1", "hs_aaaaaaaaaa"}

	t.Run("canonical order filtered to observed", func(t *testing.T) {
		observed := map[string]struct{}{"hs_aaaaaaaaaa": {}, "dir_0": {}}
		assert.Equal(t, []string{"dir_0", "hs_aaaaaaaaaa"}, shapeDirectionKeys(routeOrder, observed))
	})

	t.Run("extras appended alphabetically", func(t *testing.T) {
		observed := map[string]struct{}{"dir_1": {}, "hs_zzzzzzzzzz": {}, "hs_mmmmmmmmmm": {}}
		assert.Equal(t,
			[]string{"dir_1", "hs_mmmmmmmmmm", "hs_zzzzzzzzzz"},
			shapeDirectionKeys(routeOrder, observed))
	})

	t.Run("no signal falls back to full route order", func(t *testing.T) {
		assert.Equal(t, routeOrder, shapeDirectionKeys(routeOrder, nil))
	})

	t.Run("no signal and no route order", func(t *testing.T) {
		assert.Equal(t, []string{defaultDirectionKey}, shapeDirectionKeys(nil, nil))
	})
}

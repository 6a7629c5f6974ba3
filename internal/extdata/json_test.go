package extdata

import (
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeSeries(t *testing.T) {
	doc := `{"population": [{"time": 0, "value": 100}, {"time": 1, "value": 110}]}`
	series, err := DecodeSeries(strings.NewReader(doc))
	assert.NoError(t, err)
	assert.True(t, series.Has("population"))

	points := series.Points("population")
	assert.Equal(t, 2, len(points))
	assert.Equal(t, 110.0, points[1][1])
}

func TestDecodeSeries_InvalidJSON(t *testing.T) {
	_, err := DecodeSeries(strings.NewReader("not json"))
	assert.Error(t, err)
}

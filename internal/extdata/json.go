package extdata

import (
	"encoding/json"
	"fmt"
	"io"
)

// wireSample mirrors Sample with JSON tags; Sample itself carries none, so the
// in-memory contract type stays free of wire-format details.
type wireSample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// DecodeSeries reads the JSON shape a CLI-level adapter hands the core: a
// canonicalName -> [{time, value}, ...] object. This is the one concrete
// external-data file format the CLI supports directly; spreadsheet/.vdf
// reading remains out of scope (see package doc) and is left to whatever
// produces this JSON document.
func DecodeSeries(r io.Reader) (Series, error) {
	var wire map[string][]wireSample
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding external data series: %w", err)
	}

	series := make(Series, len(wire))
	for name, samples := range wire {
		out := make([]Sample, len(samples))
		for i, s := range samples {
			out[i] = Sample{Time: s.Time, Value: s.Value}
		}
		series[name] = out
	}
	return series, nil
}

package compute

import (
	"encoding/json"
	"math"
	"strconv"
)

// Result is the outcome of a successful execution.
type Result struct {
	Backend         Backend
	ExecutionTimeUs int64
	Success         bool
	Output          []float32
}

type resultJSON struct {
	Backend         string       `json:"backend"`
	BackendName     string       `json:"backendName"`
	ExecutionTimeUs int64        `json:"executionTimeUs"`
	Success         bool         `json:"success"`
	Output          []outputElem `json:"output"`
}

// MarshalJSON renders the backend by id and display name and the output
// with the shortest float32 representation.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make([]outputElem, len(r.Output))
	for i, v := range r.Output {
		out[i] = outputElem(v)
	}
	return json.Marshal(resultJSON{
		Backend:         r.Backend.String(),
		BackendName:     r.Backend.DisplayName(),
		ExecutionTimeUs: r.ExecutionTimeUs,
		Success:         r.Success,
		Output:          out,
	})
}

// outputElem marshals integers without a decimal point and non-finite
// values as null.
type outputElem float32

func (o outputElem) MarshalJSON() ([]byte, error) {
	f := float64(o)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return []byte(strconv.FormatInt(int64(f), 10)), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 32)), nil
}

package model

import (
	"bytes"
	"math"
	"strconv"
)

// FlexFloat decodes JSON values that brokers encode inconsistently as
// numbers or quoted strings. Anything unparseable decodes to 0; the
// zero fallback is lossy on purpose so a single bad field never drops
// an entire frame.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float64() float64 {
	return float64(f)
}

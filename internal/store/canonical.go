package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/gowebpki/jcs"
)

// canonicalize returns the RFC 8785 form of a JSON value. JCS writes numbers as
// IEEE-754 doubles, so a value holding a number a double cannot carry (large
// token ids, editions) is instead re-encoded with sorted keys and its number
// literals kept verbatim.
func canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	if numbersFitDouble(v) {
		return jcs.Transform(raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// numbersFitDouble reports whether every number in v survives a round trip
// through float64 with its value unchanged
func numbersFitDouble(v any) bool {
	switch t := v.(type) {
	case json.Number:
		return fitsDouble(t)
	case map[string]any:
		for _, e := range t {
			if !numbersFitDouble(e) {
				return false
			}
		}
	case []any:
		for _, e := range t {
			if !numbersFitDouble(e) {
				return false
			}
		}
	}
	return true
}

func fitsDouble(n json.Number) bool {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return false
	}
	want, ok := new(big.Rat).SetString(n.String())
	if !ok {
		return false
	}
	got, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return false
	}
	return want.Cmp(got) == 0
}

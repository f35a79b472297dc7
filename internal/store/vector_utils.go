package store

import (
	"errors"
	"strconv"
)

// encodeVector renders v as a JSON array of floats.
func encodeVector(v []float32) string {
	buf := make([]byte, 0, len(v)*10+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'g', -1, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// decodeVector parses a JSON array of floats into []float32, reusing dest's capacity.
func decodeVector(data []byte, dest []float32) ([]float32, error) {
	dest = dest[:0]

	i := 0
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i == len(data) {
		return dest, nil
	}
	if data[i] != '[' {
		return nil, errors.New("expected '[' at start")
	}
	i++

	for i < len(data) {
		for i < len(data) && isSpace(data[i]) {
			i++
		}
		if i == len(data) {
			break
		}
		if data[i] == ']' {
			return dest, nil
		}

		start := i
		for i < len(data) && data[i] != ',' && data[i] != ']' && !isSpace(data[i]) {
			i++
		}
		f, err := strconv.ParseFloat(string(data[start:i]), 32)
		if err != nil {
			return nil, err
		}
		dest = append(dest, float32(f))

		for i < len(data) && isSpace(data[i]) {
			i++
		}
		if i < len(data) && data[i] == ',' {
			i++
		} else if i < len(data) && data[i] == ']' {
			return dest, nil
		}
	}
	return nil, errors.New("unterminated vector")
}

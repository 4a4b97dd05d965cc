package spreadsheet

import (
	"math"
	"strconv"
	"strings"
)

// CoerceValue extracts a usable scalar from a cell. absent cells read as 0,
// number cells are converted (0 when that fails) and everything else passes
// through unchanged. never fails.
func CoerceValue(cell *CellData) Primitive {
	if cell == nil {
		return 0.0
	}

	var raw Primitive = cell.Content
	if cell.ComputedValue != nil {
		raw = cell.ComputedValue
	}

	if cell.DataType == DataTypeNumber {
		if num, ok := toNumber(raw); ok && isFinite(num) {
			return num
		}
		return 0.0
	}
	return raw
}

// toNumber converts a primitive to float64 when it has a numeric reading.
// blank strings do not.
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		num, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return num, true
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// FormatValue renders a computed value for display: integers without a
// fractional part, infinities as "Infinity"/"-Infinity" and nil as "".
func FormatValue(value Primitive) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		switch {
		case math.IsInf(v, 1):
			return "Infinity"
		case math.IsInf(v, -1):
			return "-Infinity"
		case math.IsNaN(v):
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

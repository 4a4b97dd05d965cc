package spreadsheet

import (
	"strings"

	"github.com/araddon/dateparse"
)

// Classification is the outcome of inspecting raw cell text
type Classification struct {
	IsValid  bool
	DataType DataType
}

// Classify infers the data type of raw cell text. formulas are recorded as
// text until evaluated. input is never rejected.
func Classify(text string) Classification {
	switch {
	case strings.HasPrefix(text, "="):
		return Classification{IsValid: true, DataType: DataTypeText}
	case isNumeric(text):
		return Classification{IsValid: true, DataType: DataTypeNumber}
	case isDate(text):
		return Classification{IsValid: true, DataType: DataTypeDate}
	default:
		return Classification{IsValid: true, DataType: DataTypeText}
	}
}

func isNumeric(text string) bool {
	num, ok := toNumber(text)
	return ok && isFinite(num)
}

func isDate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	_, err := dateparse.ParseAny(trimmed)
	return err == nil
}

// initialValue is the computed value stored for freshly classified text
func initialValue(text string, dataType DataType) Primitive {
	if dataType == DataTypeNumber {
		if num, ok := toNumber(text); ok {
			return num
		}
	}
	return text
}

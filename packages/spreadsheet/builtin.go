package spreadsheet

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CellAccessor returns the data stored at a key, or nil when the cell is absent
type CellAccessor func(key CellKey) *CellData

// Function is the shape of every built-in. args holds the comma separated
// argument text, already trimmed.
type Function func(args []string, lookup CellAccessor) (Primitive, error)

// functionOrder is the order in which formula prefixes are tried
var functionOrder = []string{
	"SUM",
	"AVERAGE",
	"MAX",
	"MIN",
	"COUNT",
	"TRIM",
	"UPPER",
	"LOWER",
	"REMOVE_DUPLICATES",
	"FIND_AND_REPLACE",
}

// BuiltInFunctions contains all spreadsheet built-in functions
type BuiltInFunctions struct{}

// NewDefaultBuiltInFunctions creates the built-in function library
func NewDefaultBuiltInFunctions() *BuiltInFunctions {
	return &BuiltInFunctions{}
}

// Names returns the function names in dispatch order
func (bf *BuiltInFunctions) Names() []string {
	names := make([]string, len(functionOrder))
	copy(names, functionOrder)
	return names
}

// Call invokes a built-in function by name with the given arguments
func (bf *BuiltInFunctions) Call(name string, args []string, lookup CellAccessor) (Primitive, error) {
	switch strings.ToUpper(name) {
	case "SUM":
		return bf.SUM(args, lookup)
	case "AVERAGE":
		return bf.AVERAGE(args, lookup)
	case "MAX":
		return bf.MAX(args, lookup)
	case "MIN":
		return bf.MIN(args, lookup)
	case "COUNT":
		return bf.COUNT(args, lookup)
	case "TRIM":
		return bf.TRIM(args, lookup)
	case "UPPER":
		return bf.UPPER(args, lookup)
	case "LOWER":
		return bf.LOWER(args, lookup)
	case "REMOVE_DUPLICATES":
		return bf.REMOVE_DUPLICATES(args, lookup)
	case "FIND_AND_REPLACE":
		return bf.FIND_AND_REPLACE(args, lookup)
	default:
		return nil, NewSpreadsheetError(ErrorCodeName, fmt.Sprintf("Unknown function: %s", name))
	}
}

// argAt returns the i-th argument or "" when it was not supplied
func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// SUM adds the coerced values of a range, non-numeric entries count as 0
func (bf *BuiltInFunctions) SUM(args []string, lookup CellAccessor) (Primitive, error) {
	keys, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, key := range keys {
		if num, ok := toNumber(CoerceValue(lookup(key))); ok && !math.IsNaN(num) {
			sum += num
		}
	}
	return sum, nil
}

// AVERAGE divides the SUM by the size of the range, not by the number of
// numeric cells
func (bf *BuiltInFunctions) AVERAGE(args []string, lookup CellAccessor) (Primitive, error) {
	cells, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	sum, err := bf.SUM(args, lookup)
	if err != nil {
		return nil, err
	}
	return sum.(float64) / float64(len(cells)), nil
}

// rangeNumber reads a cell for MAX/MIN. absent, blank and non-numeric cells
// have no reading and leave the reduction at its identity.
func rangeNumber(cell *CellData) (float64, bool) {
	if cell == nil {
		return 0, false
	}
	num, ok := toNumber(CoerceValue(cell))
	if !ok || math.IsNaN(num) {
		return 0, false
	}
	return num, true
}

// MAX returns -Inf when no cell in the range is numeric
func (bf *BuiltInFunctions) MAX(args []string, lookup CellAccessor) (Primitive, error) {
	keys, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	max := math.Inf(-1)
	for _, key := range keys {
		if num, ok := rangeNumber(lookup(key)); ok && num > max {
			max = num
		}
	}
	return max, nil
}

// MIN returns +Inf when no cell in the range is numeric
func (bf *BuiltInFunctions) MIN(args []string, lookup CellAccessor) (Primitive, error) {
	keys, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	min := math.Inf(1)
	for _, key := range keys {
		if num, ok := rangeNumber(lookup(key)); ok && num < min {
			min = num
		}
	}
	return min, nil
}

// COUNT counts the cells whose coerced value is a finite number. absent
// cells coerce to 0 and are counted.
func (bf *BuiltInFunctions) COUNT(args []string, lookup CellAccessor) (Primitive, error) {
	keys, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	count := 0
	for _, key := range keys {
		if num, ok := CoerceValue(lookup(key)).(float64); ok && isFinite(num) {
			count++
		}
	}
	return float64(count), nil
}

func (bf *BuiltInFunctions) TRIM(args []string, lookup CellAccessor) (Primitive, error) {
	return strings.TrimSpace(argAt(args, 0)), nil
}

func (bf *BuiltInFunctions) UPPER(args []string, lookup CellAccessor) (Primitive, error) {
	// casers carry state, one per call
	return cases.Upper(language.Und).String(argAt(args, 0)), nil
}

func (bf *BuiltInFunctions) LOWER(args []string, lookup CellAccessor) (Primitive, error) {
	return cases.Lower(language.Und).String(argAt(args, 0)), nil
}

// REMOVE_DUPLICATES joins the distinct coerced values of a range with ", ",
// keeping first occurrences. 1 and "1" are distinct.
func (bf *BuiltInFunctions) REMOVE_DUPLICATES(args []string, lookup CellAccessor) (Primitive, error) {
	keys, err := ExpandRange(argAt(args, 0))
	if err != nil {
		return nil, err
	}
	seen := make(map[Primitive]struct{})
	var parts []string
	for _, key := range keys {
		value := CoerceValue(lookup(key))
		if f, ok := value.(float64); ok && math.IsNaN(f) {
			value = "NaN"
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		parts = append(parts, FormatValue(value))
	}
	return strings.Join(parts, ", "), nil
}

// FIND_AND_REPLACE replaces every match of the find pattern in text
func (bf *BuiltInFunctions) FIND_AND_REPLACE(args []string, lookup CellAccessor) (Primitive, error) {
	text, find, replace := argAt(args, 0), argAt(args, 1), argAt(args, 2)
	re, err := regexp.Compile(find)
	if err != nil {
		return nil, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("invalid pattern %q: %v", find, err))
	}
	return re.ReplaceAllString(text, replace), nil
}

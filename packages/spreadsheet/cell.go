package spreadsheet

import (
	"regexp"
)

// Primitive represents the value a cell can compute to.
// types:
//   - float64: numeric values
//   - string: text values, including error sentinels such as "#ERROR!"
//   - nil: no computed value yet
type Primitive any

// ErrorCode represents the spreadsheet error codes the engine can surface
type ErrorCode uint8

const (
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
	ErrorCodeCycle ErrorCode = 9 // #CYCLE! - circular reference (transitive mode only)
)

// ErrorMapper maps error code numbers to the sentinel stored in a cell.
// evaluation collapses every code except ErrorCodeCycle to "#ERROR!", the
// finer codes only travel inside error messages.
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeOther: "#ERROR!",
	ErrorCodeCycle: "#CYCLE!",
}

const (
	// ErrorValue is the computed value of any formula that failed to evaluate
	ErrorValue = "#ERROR!"
	// CycleValue is the computed value of a cell on a reference cycle
	CycleValue = "#CYCLE!"
)

// SpreadsheetError preserves error code for display in cells
type SpreadsheetError struct {
	ErrorCode ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.ErrorCode]
}

// Sentinel returns the value stored in a cell for this error
func (e *SpreadsheetError) Sentinel() string {
	if e.ErrorCode == ErrorCodeCycle {
		return CycleValue
	}
	return ErrorValue
}

func NewSpreadsheetError(code ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// IsErrorValue reports whether a computed value is one of the error sentinels
func IsErrorValue(v Primitive) bool {
	s, ok := v.(string)
	return ok && (s == ErrorValue || s == CycleValue)
}

// DataType is the classification recorded on a cell
type DataType string

const (
	DataTypeNumber DataType = "number"
	DataTypeText   DataType = "text"
	DataTypeDate   DataType = "date"
	DataTypeError  DataType = "error"
)

// CellKey identifies a cell as <Column><Row>, e.g. "A1" or "Z50"
type CellKey string

// grid bounds of the surrounding application
const (
	MaxColumns = 26
	MaxRows    = 50
)

var cellKeyPattern = regexp.MustCompile(`^[A-Z][0-9]+$`)

// IsCellKey checks the <Letter><Digits> shape only, bounds are not enforced
func IsCellKey(s string) bool {
	return cellKeyPattern.MatchString(s)
}

// CellFormat holds visual attributes. never read by the engine, only carried.
type CellFormat struct {
	Bold     bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic   bool   `json:"italic,omitempty" yaml:"italic,omitempty"`
	FontSize int    `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
}

// CellData is the unit of state per key
type CellData struct {
	Content       string     `json:"content" yaml:"content"`             // raw text as typed, "=" prefix marks a formula
	Format        CellFormat `json:"format" yaml:"format,omitempty"`     // carried through recomputation unchanged
	ComputedValue Primitive  `json:"computedValue,omitempty" yaml:"computedValue,omitempty"`
	DataType      DataType   `json:"dataType,omitempty" yaml:"dataType,omitempty"`
}

// IsFormula reports whether the cell content is a formula
func (c *CellData) IsFormula() bool {
	return c != nil && len(c.Content) > 0 && c.Content[0] == '='
}

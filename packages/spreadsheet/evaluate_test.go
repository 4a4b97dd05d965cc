package spreadsheet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// valuesLookup serves computed values from a plain map
func valuesLookup(values map[CellKey]Primitive) Lookup {
	return func(key CellKey) Primitive {
		return values[key]
	}
}

func TestEvaluate(t *testing.T) {
	lookup := valuesLookup(map[CellKey]Primitive{
		"A1": 1.0,
		"A2": 2.0,
		"A3": 3.0,
		"B1": 10.0,
		"C1": "x",
		"C2": "y",
		"D1": "  padded  ",
	})

	tests := []struct {
		name    string
		formula string
		want    Primitive
	}{
		{"sum", "=SUM(A1:A3)", 6.0},
		{"sum reversed range", "=SUM(A3:A1)", 6.0},
		{"sum single cell", "=SUM(B1)", 10.0},
		{"sum text counts as zero", "=SUM(A1:C2)", 13.0},
		{"average absent cell counts", "=AVERAGE(B1:B2)", 5.0},
		{"max", "=MAX(A1:A3)", 3.0},
		{"min", "=MIN(A1:A3)", 1.0},
		{"min non-numeric", "=MIN(C1:C2)", math.Inf(1)},
		{"max non-numeric", "=MAX(C1:C2)", math.Inf(-1)},
		{"count", "=COUNT(A1:A3)", 3.0},
		{"count skips text keeps absent", "=COUNT(C1:C3)", 1.0},
		{"upper", "=UPPER(hello)", "HELLO"},
		{"lower folds literal first", "=LOWER(Hello)", "hello"},
		{"trim", "=TRIM(  hi  )", "HI"},
		{"remove duplicates", "=REMOVE_DUPLICATES(A1:B3)", "1, 2, 3, 10, 0"},
		{"find and replace", "=FIND_AND_REPLACE(hello world, O, 0)", "HELL0 W0RLD"},
		{"find and replace pattern", "=FIND_AND_REPLACE(a1b22c, [0-9]+, #)", "A#B#C"},
		{"lowercase name", "=sum(a1:a2)", 3.0},
		{"arithmetic", "=A1+B1*2", 21.0},
		{"precedence", "=(A1+B1)*2", 22.0},
		{"unary minus", "=-A3+1", -2.0},
		{"division", "=B1/4", 2.5},
		{"text reference reads zero", "=C1+1", 1.0},
		{"absent reference reads zero", "=Z9*3", 0.0},
		{"literal only", "=1.5e2", 150.0},
		{"whitespace", "= 1 + 2 ", 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.formula, lookup))
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	lookup := valuesLookup(map[CellKey]Primitive{"A1": 1.0, "A2": 0.0})

	formulas := []string{
		"=A1+",
		"=",
		"=1/0",
		"=A1/A2",
		"=(1+2",
		"=1+2)",
		"=2 3",
		"=AA1+1",
		"=HELLO",
		"=1 % 2",
		"=FIND_AND_REPLACE(abc, [, x)",
		"=NOW()",
	}

	for _, formula := range formulas {
		t.Run(formula, func(t *testing.T) {
			assert.Equal(t, ErrorValue, Evaluate(formula, lookup))
		})
	}
}

func TestEvaluateNilLookup(t *testing.T) {
	assert.Equal(t, 0.0, Evaluate("=SUM(A1:A3)", nil))
	assert.Equal(t, 3.0, Evaluate("=A1+3", nil))
}

func TestEvaluatePreserveLiteralCase(t *testing.T) {
	lookup := valuesLookup(map[CellKey]Primitive{"A1": 4.0, "A2": 6.0})
	evaluator := NewEvaluator(true)

	tests := []struct {
		formula string
		want    Primitive
	}{
		{"=lower(Hello World)", "hello world"},
		{"=TRIM(  Mixed Case  )", "Mixed Case"},
		{"=find_and_replace(abc, b, X)", "aXc"},
		{"=sum(a1:a2)", 10.0},
		{"=a1*a2", 24.0},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluator.Evaluate(tt.formula, lookup))
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input string
		want  []CellKey
	}{
		{"A1", []CellKey{"A1"}},
		{"A1:B2", []CellKey{"A1", "A2", "B1", "B2"}},
		{"B2:A1", []CellKey{"A1", "A2", "B1", "B2"}},
		{"A3:A1", []CellKey{"A1", "A2", "A3"}},
		{"C1:C1", []CellKey{"C1"}},
		{"A1:", []CellKey{"A1"}},
		{":B2", []CellKey{""}},
		{"1:2", []CellKey{"1"}},
		{"hello", []CellKey{"hello"}},
		{"A:B", []CellKey{"A0", "B0"}},
		{"AA1:AB2", []CellKey{"A1", "A2"}},
		{"A1:A5000000", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRange(tt.input))
		})
	}
}

func TestExpandRangeBounds(t *testing.T) {
	keys, err := ExpandRange("A1:Z50")
	require.NoError(t, err)
	assert.Len(t, keys, MaxRangeCells)

	keys, err = ExpandRange("B1:C650")
	require.NoError(t, err)
	assert.Len(t, keys, MaxRangeCells)

	for _, input := range []string{"A1:A1301", "A1:B651", "A1:Z999999999", "A0:A9223372036854775807"} {
		t.Run(input, func(t *testing.T) {
			keys, err := ExpandRange(input)
			assert.Nil(t, keys)
			var sheetErr *SpreadsheetError
			require.ErrorAs(t, err, &sheetErr)
			assert.Equal(t, ErrorCodeRef, sheetErr.ErrorCode)
		})
	}

	// range functions turn an oversized range into the error sentinel
	for _, name := range []string{"SUM", "AVERAGE", "MAX", "MIN", "COUNT", "REMOVE_DUPLICATES"} {
		assert.Equal(t, ErrorValue, Evaluate("="+name+"(A1:Z999999999)", nil), name)
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name string
		cell *CellData
		want Primitive
	}{
		{"absent", nil, 0.0},
		{"number from computed", &CellData{Content: "1", ComputedValue: 2.0, DataType: DataTypeNumber}, 2.0},
		{"number from content", &CellData{Content: "7", DataType: DataTypeNumber}, 7.0},
		{"number not numeric", &CellData{Content: "abc", DataType: DataTypeNumber}, 0.0},
		{"number infinite", &CellData{ComputedValue: math.Inf(1), DataType: DataTypeNumber}, 0.0},
		{"text passthrough", &CellData{Content: "abc", DataType: DataTypeText}, "abc"},
		{"text prefers computed", &CellData{Content: "=A1", ComputedValue: 3.0, DataType: DataTypeText}, 3.0},
		{"date passthrough", &CellData{Content: "2024-01-01", DataType: DataTypeDate}, "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceValue(tt.cell))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "10", FormatValue(10.0))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, "-Infinity", FormatValue(math.Inf(-1)))
	assert.Equal(t, "Infinity", FormatValue(math.Inf(1)))
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "abc", FormatValue("abc"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want DataType
	}{
		{"42", DataTypeNumber},
		{"-3.5", DataTypeNumber},
		{" 7 ", DataTypeNumber},
		{"1e3", DataTypeNumber},
		{"=A1+B1", DataTypeText},
		{"=42", DataTypeText},
		{"hello", DataTypeText},
		{"", DataTypeText},
		{"   ", DataTypeText},
		{"2024-01-15", DataTypeDate},
		{"12/25/2024", DataTypeDate},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Classify(tt.text)
			assert.True(t, got.IsValid)
			assert.Equal(t, tt.want, got.DataType)
		})
	}
}

func TestBuiltInFunctionsCall(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()

	_, err := bf.Call("MEDIAN", []string{"A1:A2"}, nil)
	var spreadsheetErr *SpreadsheetError
	if assert.ErrorAs(t, err, &spreadsheetErr) {
		assert.Equal(t, ErrorCodeName, spreadsheetErr.ErrorCode)
		assert.Equal(t, ErrorValue, spreadsheetErr.Sentinel())
	}

	got, err := bf.Call("upper", []string{"abc"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, "ABC", got)

	assert.Equal(t, functionOrder, bf.Names())
}

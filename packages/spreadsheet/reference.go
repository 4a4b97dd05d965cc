package spreadsheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	columnRun = regexp.MustCompile(`[A-Z]+`)
	rowRun    = regexp.MustCompile(`\d+`)
)

// MaxRangeCells bounds how many keys one range may expand to: the whole grid
const MaxRangeCells = MaxColumns * MaxRows

// ParseRange expands a textual range such as "A1:B5" into cell keys, column
// outer loop and row inner loop. input without a colon is returned as-is.
// a range spanning more than MaxRangeCells expands to nothing, see
// ExpandRange for the error.
//
// only the first letter of a column run is compared, so "AA1:AB2" iterates
// the single column A. multi-letter columns are outside the grid anyway.
func ParseRange(s string) []CellKey {
	keys, err := ExpandRange(s)
	if err != nil {
		return nil
	}
	return keys
}

// ExpandRange is ParseRange that reports ranges larger than MaxRangeCells as
// an ErrorCodeRef error instead of allocating them
func ExpandRange(s string) ([]CellKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return []CellKey{CellKey(s)}, nil
	}
	start, end := parts[0], parts[1]
	if start == "" || end == "" {
		return []CellKey{CellKey(start)}, nil
	}

	startCol, startRow, ok := splitReference(start)
	if !ok {
		return []CellKey{CellKey(start)}, nil
	}
	endCol, endRow, ok := splitReference(end)
	if !ok {
		return []CellKey{CellKey(start)}, nil
	}

	fromCol, toCol := min(startCol, endCol), max(startCol, endCol)
	fromRow, toRow := min(startRow, endRow), max(startRow, endRow)

	// the row span is checked alone first so the product cannot overflow
	cols, rows := int(toCol-fromCol)+1, toRow-fromRow
	if rows >= MaxRangeCells || cols*(rows+1) > MaxRangeCells {
		return nil, NewSpreadsheetError(ErrorCodeRef,
			fmt.Sprintf("range %s spans more than %d cells", s, MaxRangeCells))
	}
	rows++

	keys := make([]CellKey, 0, cols*rows)
	for col := fromCol; col <= toCol; col++ {
		for row := fromRow; row <= toRow; row++ {
			keys = append(keys, CellKey(string(col)+strconv.Itoa(row)))
		}
	}
	return keys, nil
}

// splitReference pulls the leading column letter and the first digit run out
// of a reference token. a missing row reads as 0.
func splitReference(ref string) (col rune, row int, ok bool) {
	letters := columnRun.FindString(ref)
	if letters == "" {
		return 0, 0, false
	}
	if digits := rowRun.FindString(ref); digits != "" {
		// digit runs too long for int fall back to 0 like any unparsable row
		row, _ = strconv.Atoi(digits)
	}
	return rune(letters[0]), row, true
}

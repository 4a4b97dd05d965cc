package spreadsheet

import (
	"strings"

	"github.com/xuri/efp"
)

// ExtractReferences returns the cells a formula reads, from real reference
// tokens rather than substring matches. ranges are expanded. non-formula
// content references nothing.
func ExtractReferences(content string) []CellKey {
	if !strings.HasPrefix(content, "=") {
		return nil
	}

	ps := efp.ExcelParser()
	tokens := ps.Parse(strings.ToUpper(content[1:]))

	var refs []CellKey
	seen := make(map[CellKey]bool)
	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref := strings.ReplaceAll(token.TValue, "$", "")
		for _, key := range ParseRange(ref) {
			if !IsCellKey(string(key)) || seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, key)
		}
	}
	return refs
}

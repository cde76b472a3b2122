package csv

// FormulaPrefixes are the leading characters that make spreadsheet applications interpret a cell
// as a formula.
var FormulaPrefixes = []rune{'=', '+', '-', '@', '\t', '\r'}

// SanitizationPrefix is prepended to cells starting with one of FormulaPrefixes.
const SanitizationPrefix = "'"

func NeedsSanitization(cell string) bool {
	if cell == "" {
		return false
	}

	first := rune(cell[0])
	for _, prefix := range FormulaPrefixes {
		if first == prefix {
			return true
		}
	}
	return false
}

// SanitizeCell neutralizes spreadsheet formula injection by prefixing the cell with a single
// quote if it starts with a formula character. Other cells are returned unchanged.
func SanitizeCell(cell string) string {
	if NeedsSanitization(cell) {
		return SanitizationPrefix + cell
	}
	return cell
}

// SanitizeColumns sanitizes the cells at the given column indices of every row, in place.
func SanitizeColumns(rows [][]string, columnIndices []int) {
	for _, row := range rows {
		for _, i := range columnIndices {
			if i < len(row) {
				row[i] = SanitizeCell(row[i])
			}
		}
	}
}

package csv

import (
	"bufio"
	"io"
	"strings"

	"hermannm.dev/wrap"
)

// DefaultDelimitersToCheck are the candidate field delimiters, in order of preference on ties.
var DefaultDelimitersToCheck = []rune{',', ';', '\t', '|', ' '}

// FallbackDelimiter is used when no candidate occurs in the header line (single-column files).
const FallbackDelimiter = ','

const maxLineLength = 16 << 20

// DeduceFieldDelimiter picks the candidate that splits the first lines of the file into the most
// consistent number of fields, measured against the header line. Delimiters inside quoted fields
// are not counted. The file is rewound to the start before returning.
func DeduceFieldDelimiter(
	csvFile io.ReadSeeker,
	maxLinesToCheck int,
	delimitersToCheck []rune,
) (delimiter rune, err error) {
	defer func() {
		if _, seekErr := csvFile.Seek(0, io.SeekStart); seekErr != nil {
			err = wrap.Error(seekErr, "failed to reset CSV reader after deducing field delimiter")
		}
	}()

	if len(delimitersToCheck) == 0 {
		delimitersToCheck = DefaultDelimitersToCheck
	}

	scores := make([]delimiterScore, len(delimitersToCheck))
	for i, candidate := range delimitersToCheck {
		scores[i].delimiter = candidate
	}

	scanner := bufio.NewScanner(csvFile)
	scanner.Buffer(nil, maxLineLength)
	for checkedLines := 0; checkedLines < maxLinesToCheck && scanner.Scan(); {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		for i := range scores {
			scores[i].addLine(countUnquoted(line, scores[i].delimiter))
		}
		checkedLines++
	}
	if err := scanner.Err(); err != nil {
		return 0, wrap.Error(err, "failed to read CSV lines to deduce field delimiter")
	}

	delimiter = FallbackDelimiter
	bestConsistency := 0
	for _, score := range scores {
		if consistency := score.consistency(); consistency > bestConsistency {
			delimiter = score.delimiter
			bestConsistency = consistency
		}
	}
	return delimiter, nil
}

type delimiterScore struct {
	delimiter     rune
	headerCount   int
	matchingLines int
	lines         int
}

func (score *delimiterScore) addLine(count int) {
	if score.lines == 0 {
		score.headerCount = count
	}
	score.lines++
	if count == score.headerCount {
		score.matchingLines++
	}
}

// consistency is 0 for candidates missing from the header line. Otherwise, the number of lines
// agreeing with the header's field count decides, and the field count breaks ties.
func (score delimiterScore) consistency() int {
	if score.headerCount == 0 {
		return 0
	}
	return score.matchingLines*1000 + min(score.headerCount, 999)
}

func countUnquoted(line string, delimiter rune) int {
	count := 0
	inQuotes := false
	for _, char := range line {
		switch {
		case char == '"':
			inQuotes = !inQuotes
		case char == delimiter && !inQuotes:
			count++
		}
	}
	return count
}

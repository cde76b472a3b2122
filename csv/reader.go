package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"

	"hermannm.dev/wrap"
)

type Reader struct {
	inner      *csv.Reader
	file       io.ReadSeeker
	currentRow int
}

// NewReader deduces the field delimiter of the given CSV file, and returns a reader positioned at
// the start of the file (or after the header row, if skipHeaderRow is set).
func NewReader(csvFile io.ReadSeeker, skipHeaderRow bool) (*Reader, error) {
	delimiter, err := DeduceFieldDelimiter(csvFile, 20, DefaultDelimitersToCheck)
	if err != nil {
		return nil, err
	}

	reader := &Reader{inner: newInnerReader(csvFile, delimiter), file: csvFile, currentRow: 0}

	if skipHeaderRow {
		if _, err := reader.ReadHeaderRow(); err != nil {
			return nil, wrap.Error(err, "failed to skip CSV header row")
		}
	}

	return reader, nil
}

func newInnerReader(csvFile io.ReadSeeker, delimiter rune) *csv.Reader {
	reader := csv.NewReader(csvFile)
	reader.ReuseRecord = true
	reader.Comma = delimiter
	// Uploaded files are not guaranteed to have the same field count on every row, or to quote
	// consistently
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader
}

func (reader *Reader) Delimiter() rune {
	return reader.inner.Comma
}

// ReadRow returns the next row of the file. The returned slice is reused between calls, so it must
// be cloned if kept.
func (reader *Reader) ReadRow() (row []string, rowNumber int, done bool, err error) {
	reader.currentRow++

	row, err = reader.inner.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, true, nil
		} else {
			return nil, 0, false, err
		}
	}

	return row, reader.currentRow, false, nil
}

func (reader *Reader) ReadHeaderRow() (row []string, err error) {
	row, rowNumber, done, err := reader.ReadRow()
	if done {
		return nil, errors.New("csv file ended before header row")
	}
	if err != nil {
		return nil, err
	}
	if rowNumber != 1 {
		return nil, errors.New("tried to read header row after reading previous rows")
	}
	return slices.Clone(row), nil
}

// ReadRows reads up to maxRows data rows (all remaining rows if maxRows <= 0). Short rows are
// padded with blank fields up to the given field count.
func (reader *Reader) ReadRows(maxRows int, fieldCount int) ([][]string, error) {
	var rows [][]string

	for maxRows <= 0 || len(rows) < maxRows {
		row, rowNumber, done, err := reader.ReadRow()
		if done {
			break
		}
		if err != nil {
			return nil, wrap.Errorf(err, "failed to read CSV row %d", reader.currentRow)
		}

		if len(row) > fieldCount {
			return nil, wrap.Errorf(
				errors.New("row has more fields than header"), "invalid CSV row %d", rowNumber,
			)
		}
		normalized := make([]string, fieldCount)
		copy(normalized, row)

		rows = append(rows, normalized)
	}

	return rows, nil
}

func (reader *Reader) ResetReadPosition(skipHeaderRow bool) error {
	if _, err := reader.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader.currentRow = 0
	reader.inner = newInnerReader(reader.file, reader.inner.Comma)

	if skipHeaderRow {
		if _, err := reader.ReadHeaderRow(); err != nil {
			return wrap.Error(err, "failed to skip CSV header row")
		}
	}

	return nil
}

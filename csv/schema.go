package csv

import (
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/wrap"
)

// DeduceTableSchema reads the header row and up to maxRowsToCheck data rows (all rows if
// maxRowsToCheck <= 0) to deduce column types. The reader is reset to the first data row before
// returning, so the data can be read afterwards.
func (reader *Reader) DeduceTableSchema(maxRowsToCheck int) (schema db.TableSchema, err error) {
	defer func() {
		if err != nil {
			return
		}
		if resetErr := reader.ResetReadPosition(true); resetErr != nil {
			err = wrap.Error(resetErr, "failed to reset CSV file after deducing its schema")
		}
	}()

	if err := reader.ResetReadPosition(false); err != nil {
		return db.TableSchema{}, wrap.Error(err, "failed to reset CSV file before deducing schema")
	}

	columnNames, err := reader.ReadHeaderRow()
	if err != nil {
		return db.TableSchema{}, wrap.Error(
			err,
			"failed to read CSV column names from header row",
		)
	}

	schema = db.NewTableSchema(columnNames)

	for {
		row, rowNumber, done, err := reader.ReadRow()
		if done || (maxRowsToCheck > 0 && rowNumber > maxRowsToCheck+1) {
			break
		}
		if err != nil {
			return db.TableSchema{}, wrap.Errorf(err, "failed to read CSV file")
		}

		if err := schema.DeduceDataTypesFromRow(row); err != nil {
			return db.TableSchema{}, wrap.Errorf(
				err,
				"failed to parse CSV data types from row %d",
				rowNumber,
			)
		}
	}

	schema.FinalizeDataTypes()

	if errs := schema.Validate(); len(errs) > 0 {
		return db.TableSchema{}, wrap.Errors(
			"failed to deduce data types for all given CSV columns",
			errs...,
		)
	}

	return schema, nil
}

package loader

import (
	"bytes"
	"context"

	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/dataframe"
	"hermannm.dev/wrap"
)

// Profile summarizes a dataset's shape, deduced from a bounded sample of its rows.
type Profile struct {
	RowCount    int             `json:"row_count"`
	SampledRows int             `json:"sampled_rows"`
	Backend     db.BackendKind  `json:"backend"`
	Encoding    csv.Encoding    `json:"encoding"`
	Delimiter   string          `json:"delimiter"`
	Columns     []ColumnProfile `json:"columns"`
}

type ColumnProfile struct {
	Name          string      `json:"name"`
	DataType      db.DataType `json:"data_type"`
	NonBlankCount int         `json:"non_blank_count"`
	BlankCount    int         `json:"blank_count"`
}

// Profile loads at most the configured number of sample rows of the dataset into a dataframe, and
// describes its columns. RowCount is that of the full dataset, and Backend the one a full load
// would select.
//
// All errors are returned as db.DatasetLoadError.
func (loader *Loader) Profile(ctx context.Context, key string) (Profile, error) {
	profile, err := loader.profile(ctx, key)
	if err != nil {
		return Profile{}, db.DatasetLoadError{DatasetKey: key, Cause: err}
	}
	return profile, nil
}

func (loader *Loader) profile(ctx context.Context, key string) (Profile, error) {
	file, err := loader.fetch(ctx, key)
	if err != nil {
		return Profile{}, err
	}
	defer file.remove()

	rowCount, engine, err := countRows(ctx, file.path)
	if err != nil {
		return Profile{}, err
	}
	closeEngine(engine)

	reader, err := csv.NewReader(bytes.NewReader(file.data), false)
	if err != nil {
		return Profile{}, wrap.Error(err, "failed to read CSV")
	}

	sample, err := dataframe.Load(reader, loader.profileSampleRows, rowCount)
	if err != nil {
		return Profile{}, wrap.Error(err, "failed to load dataset sample")
	}

	profile := Profile{
		RowCount:    rowCount,
		SampledRows: sample.LoadedRowCount(),
		Backend:     db.BackendDataFrame,
		Encoding:    file.encoding,
		Delimiter:   string(reader.Delimiter()),
		Columns:     make([]ColumnProfile, 0, len(sample.Schema().Columns)),
	}
	if UseColumnarEngine(rowCount) {
		profile.Backend = loader.ColumnarEngine()
	}

	blankCounts := sample.BlankCounts()
	for i, column := range sample.Schema().Columns {
		profile.Columns = append(profile.Columns, ColumnProfile{
			Name:          column.Name,
			DataType:      column.DataType,
			NonBlankCount: profile.SampledRows - blankCounts[i],
			BlankCount:    blankCounts[i],
		})
	}

	return profile, nil
}

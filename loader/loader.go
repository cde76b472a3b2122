package loader

import (
	"bytes"
	"context"
	"os"
	"time"

	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/clickhouse"
	"hermannm.dev/datasetquery/db/dataframe"
	"hermannm.dev/datasetquery/db/duckdb"
	"hermannm.dev/datasetquery/metrics"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// ColumnarThreshold is the row count from which datasets are loaded into the columnar engine
// instead of a dataframe.
const ColumnarThreshold = 100_000

func UseColumnarEngine(rowCount int) bool {
	return rowCount >= ColumnarThreshold
}

// Downloader fetches dataset files from object storage. Implemented by storage.Client.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Loader downloads CSV datasets and loads them into the backend that fits their size.
type Loader struct {
	storage           Downloader
	clickhouse        *clickhouse.ClickHouseDB
	metrics           *metrics.Metrics
	profileSampleRows int
}

// New creates a loader that loads large datasets into ClickHouse if clickhouseDB is non-nil, and
// into an embedded DuckDB otherwise.
func New(
	storage Downloader,
	clickhouseDB *clickhouse.ClickHouseDB,
	metrics *metrics.Metrics,
	profileSampleRows int,
) *Loader {
	return &Loader{
		storage:           storage,
		clickhouse:        clickhouseDB,
		metrics:           metrics,
		profileSampleRows: profileSampleRows,
	}
}

func (loader *Loader) ColumnarEngine() db.BackendKind {
	if loader.clickhouse != nil {
		return db.BackendClickHouse
	}
	return db.BackendDuckDB
}

// Load downloads the dataset under the given object storage key, counts its rows, and loads it into
// the columnar engine if it has at least ColumnarThreshold rows, or a dataframe otherwise. The
// caller must close the returned backend.
//
// All errors are returned as db.DatasetLoadError.
func (loader *Loader) Load(ctx context.Context, key string) (backend db.Backend, err error) {
	startTime := time.Now()
	backendLabel := "none"
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		loader.metrics.ObserveDatasetLoad(backendLabel, status)
	}()

	file, err := loader.fetch(ctx, key)
	if err != nil {
		return nil, db.DatasetLoadError{DatasetKey: key, Cause: err}
	}
	defer file.remove()

	rowCount, engine, err := countRows(ctx, file.path)
	if err != nil {
		return nil, db.DatasetLoadError{DatasetKey: key, Cause: err}
	}

	backendKind := db.BackendDataFrame
	if UseColumnarEngine(rowCount) {
		backendKind = loader.ColumnarEngine()
	}
	backendLabel = backendKind.String()

	backend, err = loader.materialize(ctx, backendKind, engine, file, rowCount)
	if err != nil {
		return nil, db.DatasetLoadError{DatasetKey: key, Cause: err}
	}

	log.Infof(
		"loaded dataset '%s' with %d rows into %s backend in %s",
		key, rowCount, backendKind, time.Since(startTime),
	)
	return backend, nil
}

// materialize takes ownership of the DuckDB engine used for counting: it is either kept as the
// backend, or closed.
func (loader *Loader) materialize(
	ctx context.Context,
	backendKind db.BackendKind,
	engine *duckdb.Engine,
	file datasetFile,
	rowCount int,
) (db.Backend, error) {
	if backendKind == db.BackendDuckDB {
		dataset, err := engine.MaterializeCSV(ctx, file.path, rowCount)
		if err != nil {
			closeEngine(engine)
			return nil, err
		}
		return dataset, nil
	}

	closeEngine(engine)

	reader, err := csv.NewReader(bytes.NewReader(file.data), false)
	if err != nil {
		return nil, wrap.Error(err, "failed to read CSV")
	}

	if backendKind == db.BackendClickHouse {
		dataset, err := loader.clickhouse.Ingest(ctx, reader, rowCount)
		if err != nil {
			return nil, wrap.Error(err, "failed to ingest dataset into ClickHouse")
		}
		return dataset, nil
	}

	dataset, err := dataframe.Load(reader, 0, rowCount)
	if err != nil {
		return nil, wrap.Error(err, "failed to load dataset into dataframe")
	}
	return dataset, nil
}

// datasetFile is a downloaded dataset, decoded to UTF-8 and written to a temporary file for DuckDB
// to read.
type datasetFile struct {
	data     []byte
	encoding csv.Encoding
	path     string
}

func (loader *Loader) fetch(ctx context.Context, key string) (datasetFile, error) {
	data, err := loader.storage.Download(ctx, key)
	if err != nil {
		return datasetFile{}, err
	}

	encoding, decoded, err := csv.Decode(data)
	if err != nil {
		return datasetFile{}, err
	}

	path, err := writeTempFile(decoded)
	if err != nil {
		return datasetFile{}, err
	}

	return datasetFile{data: decoded, encoding: encoding, path: path}, nil
}

func writeTempFile(data []byte) (path string, err error) {
	file, err := os.CreateTemp("", "dataset-*.csv")
	if err != nil {
		return "", wrap.Error(err, "failed to create temporary dataset file")
	}
	path = file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		removeFile(path)
		return "", wrap.Error(err, "failed to write temporary dataset file")
	}
	if err := file.Close(); err != nil {
		removeFile(path)
		return "", wrap.Error(err, "failed to close temporary dataset file")
	}

	return path, nil
}

func (file datasetFile) remove() {
	removeFile(file.path)
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove temporary dataset file '%s': %v", path, err)
	}
}

// countRows counts the rows of the CSV file with a fresh DuckDB engine, which is returned so it can
// be reused for materialization.
func countRows(ctx context.Context, path string) (int, *duckdb.Engine, error) {
	engine, err := duckdb.Open()
	if err != nil {
		return 0, nil, err
	}

	rowCount, err := engine.CountCSVRows(ctx, path)
	if err != nil {
		closeEngine(engine)
		return 0, nil, err
	}

	return rowCount, engine, nil
}

func closeEngine(engine *duckdb.Engine) {
	if err := engine.Close(); err != nil {
		log.ErrorCause(err, "failed to close DuckDB engine")
	}
}

package clickhouse

import (
	"context"
	"errors"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"hermannm.dev/datasetquery/config"
	"hermannm.dev/datasetquery/db/sqlquery"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// See https://github.com/ClickHouse/ClickHouse/blob/bd387f6d2c30f67f2822244c0648f2169adab4d3/src/Common/ErrorCodes.cpp#L66
const unknownTableErrorCode = 60

// ClickHouseDB is a connection pool to a ClickHouse server, used as the columnar engine for large
// datasets when configured. Each loaded dataset gets its own table, which lives until the dataset
// is closed.
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB opens a connection pool. No connection is made until the first query or Ping.
func NewClickHouseDB(config config.ClickHouse) (ClickHouseDB, error) {
	// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
	options := &clickhouse.Options{
		Addr: []string{config.Address},
		Auth: clickhouse.Auth{
			Database: config.DatabaseName,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    16,
		ConnMaxLifetime: time.Hour,
		Compression:     &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	}
	if config.Debug {
		options.Debug = true
		options.Debugf = func(format string, args ...any) {
			log.Debugf("[clickhouse] "+format, args...)
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return ClickHouseDB{}, wrap.Errorf(err, "failed to open ClickHouse connection to '%s'", config.Address)
	}

	return ClickHouseDB{conn: conn}, nil
}

func (clickhouse ClickHouseDB) Ping(ctx context.Context) error {
	if err := clickhouse.conn.Ping(ctx); err != nil {
		return wrap.Error(err, "ClickHouse ping failed")
	}
	return nil
}

func (clickhouse ClickHouseDB) Close() error {
	return clickhouse.conn.Close()
}

// DropTable drops the given table, reporting alreadyDropped instead of an error if it does not
// exist.
func (clickhouse ClickHouseDB) DropTable(
	ctx context.Context,
	table string,
) (alreadyDropped bool, err error) {
	query, err := sqlquery.DropTableQuery(Dialect{}, table)
	if err != nil {
		return false, wrap.Errorf(err, "invalid table name '%s'", table)
	}

	if err := clickhouse.conn.Exec(ctx, query.SQL); err != nil {
		var exception *proto.Exception
		if errors.As(err, &exception) && exception.Code == unknownTableErrorCode {
			return true, nil
		}

		return false, wrap.Errorf(err, "failed to drop ClickHouse table '%s'", table)
	}

	return false, nil
}

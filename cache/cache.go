package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"hermannm.dev/datasetquery/db"
)

// Cache is a key-value store with per-entry expiry. Implementations may fail on any call (e.g. when
// the store is unreachable); callers treat failures as a miss.
type Cache interface {
	// Get returns found = false if the key is missing or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error
}

const (
	keyNamespace = "query"
	keyLength    = 16
)

// Key returns a short, stable key identifying the query on the dataset. Limit and offset are left
// out, so that all pages of a query share one entry.
func Key(datasetID string, spec db.QuerySpec) string {
	spec.Limit = 0
	spec.Offset = 0

	canonical, err := json.Marshal(spec)
	if err != nil {
		// Only values JSON cannot represent (e.g. NaN) end up here
		canonical = []byte(fmt.Sprintf("%#v", spec))
	}

	hash := sha256.Sum256([]byte(keyNamespace + ":" + datasetID + ":" + string(canonical)))
	return hex.EncodeToString(hash[:])[:keyLength]
}

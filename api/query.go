package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/devlog/log"
)

const defaultLimit = 100

type queryRequest struct {
	Query    db.QuerySpec `json:"query"`
	UseCache bool         `json:"use_cache"`
}

// QueryDataset runs the query in the request body against the dataset, and returns the requested
// page of the result. The dataset is only downloaded if the result is not cached.
func (api DatasetAPI) QueryDataset(res http.ResponseWriter, req *http.Request) {
	datasetID, ok := datasetIDFromPath(res, req)
	if !ok {
		return
	}

	// Fields missing from the body keep these defaults
	request := queryRequest{Query: db.QuerySpec{Limit: defaultLimit, Offset: 0}, UseCache: true}
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		sendClientError(res, http.StatusBadRequest, err, "failed to parse query from request body")
		return
	}

	key := datasetKey(datasetID)
	backend := api.loader.Lazy(key)
	defer func() {
		if err := backend.Close(); err != nil {
			log.ErrorCause(err, "failed to close dataset backend")
		}
	}()

	result, err := api.executor.Execute(
		req.Context(), backend, request.Query, datasetID.String(), request.UseCache,
	)
	if err != nil {
		sendQueryError(res, err)
		return
	}

	sendJSON(res, http.StatusOK, result)
}

package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"hermannm.dev/wrap"
)

const (
	maxUploadSize = 512 << 20
	uploadField   = "csvFile"
)

// datasetKey returns the object storage key of the dataset with the given ID.
func datasetKey(datasetID uuid.UUID) string {
	return "datasets/" + datasetID.String() + ".csv"
}

// datasetIDFromPath returns the dataset ID path parameter, after checking that it is a valid
// dataset ID. Sends an error response and returns ok = false if it is not.
func datasetIDFromPath(res http.ResponseWriter, req *http.Request) (id uuid.UUID, ok bool) {
	rawID := chi.URLParam(req, "datasetID")

	id, err := uuid.Parse(rawID)
	if err != nil {
		sendClientError(res, http.StatusBadRequest, err, "invalid dataset ID '%s'", rawID)
		return uuid.UUID{}, false
	}

	return id, true
}

type uploadResponse struct {
	DatasetID string `json:"dataset_id"`
}

// UploadDataset stores an uploaded CSV file, and returns the ID to query it by.
func (api DatasetAPI) UploadDataset(res http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(res, req.Body, maxUploadSize)

	file, _, err := req.FormFile(uploadField)
	if err != nil {
		sendClientError(
			res, http.StatusBadRequest, err, "failed to get '%s' file upload from request", uploadField,
		)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sendClientError(res, http.StatusBadRequest, err, "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		sendClientError(res, http.StatusBadRequest, nil, "uploaded file is empty")
		return
	}

	datasetID := uuid.New()

	if err := api.storage.Upload(req.Context(), datasetKey(datasetID), data, "text/csv"); err != nil {
		sendServerError(res, http.StatusBadGateway, wrap.Error(err, "failed to store dataset"))
		return
	}

	sendJSON(res, http.StatusCreated, uploadResponse{DatasetID: datasetID.String()})
}

// ProfileDataset describes the columns of a dataset, based on a sample of its rows.
func (api DatasetAPI) ProfileDataset(res http.ResponseWriter, req *http.Request) {
	datasetID, ok := datasetIDFromPath(res, req)
	if !ok {
		return
	}

	profile, err := api.loader.Profile(req.Context(), datasetKey(datasetID))
	if err != nil {
		sendQueryError(res, err)
		return
	}

	sendJSON(res, http.StatusOK, profile)
}

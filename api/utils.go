package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/storage"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// maxErrorMessageLength bounds the error messages exposed to clients, since backend errors may
// include large parts of generated queries.
const maxErrorMessageLength = 500

// sendQueryError maps errors from query execution and dataset loading to status codes.
func sendQueryError(res http.ResponseWriter, err error) {
	var configErr db.QueryConfigError
	var executionErr db.QueryExecutionError
	var loadErr db.DatasetLoadError

	switch {
	case errors.As(err, &configErr):
		sendClientError(res, http.StatusBadRequest, err, "")
	case errors.As(err, &executionErr):
		sendClientError(res, http.StatusUnprocessableEntity, err, "")
	case errors.As(err, &loadErr):
		if errors.Is(err, storage.ErrObjectNotFound) {
			sendClientError(res, http.StatusNotFound, nil, "dataset not found")
		} else {
			sendServerError(res, http.StatusBadGateway, err)
		}
	default:
		sendServerError(res, http.StatusInternalServerError, err)
	}
}

// sendClientError responds with the given message, wrapping err if non-nil. With an empty message,
// the error's own message is used.
func sendClientError(
	res http.ResponseWriter,
	statusCode int,
	err error,
	messageFormat string,
	formatArgs ...any,
) {
	message := fmt.Sprintf(messageFormat, formatArgs...)
	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	log.Infof("client error (%d): %s", statusCode, message)
	http.Error(res, truncateMessage(message), statusCode)
}

func sendServerError(res http.ResponseWriter, statusCode int, err error) {
	log.ErrorCause(err, "request failed")
	http.Error(res, truncateMessage(err.Error()), statusCode)
}

func sendJSON(res http.ResponseWriter, statusCode int, value any) {
	body, err := json.Marshal(value)
	if err != nil {
		sendServerError(
			res, http.StatusInternalServerError, wrap.Error(err, "failed to serialize response"),
		)
		return
	}

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	if _, err := res.Write(body); err != nil {
		log.ErrorCause(err, "failed to write response")
	}
}

func truncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= maxErrorMessageLength {
		return message
	}
	return string(runes[:maxErrorMessageLength])
}

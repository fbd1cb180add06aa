package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope wraps every JSON response
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, message string, data interface{}) {
	status := statusSuccess
	if code >= http.StatusBadRequest {
		status = statusError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope{Status: status, Message: message, Data: data}); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, code int, message string) {
	writeJSON(w, logger, code, message, nil)
}

package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func SendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Nothing useful can be done once the header is out.
	_ = json.NewEncoder(w).Encode(data)
}

func SendSuccess(w http.ResponseWriter, message string, data interface{}) {
	SendJSONResponse(w, http.StatusOK, SuccessResponse{Success: true, Message: message, Data: data})
}

// SendError writes {"error": "..."} with the status implied by err's kind.
// Internal failures are logged with full detail and answered generically.
func SendError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		log.Warn("API", fmt.Sprintf("%s: %s", op, err.Error()))
	}
	SendJSONResponse(w, kind.Status(), ErrorResponse{Error: apperr.Message(err)})
}

func SendErrorMessage(w http.ResponseWriter, status int, message string) {
	SendJSONResponse(w, status, ErrorResponse{Error: message})
}

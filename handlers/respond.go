package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"exchange-chat/errs"
	"exchange-chat/logger"
)

func (h *ChatHandler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("encoding response", zap.Error(err))
	}
}

// respondError maps a service error to its status code and a structured
// body. Store failures hide their cause behind a generic message, with
// diagnostic details included outside production.
func (h *ChatHandler) respondError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)

	body := map[string]string{"error": err.Error()}
	if status == http.StatusInternalServerError {
		logger.Log.Error("request failed", zap.Error(err))
		body["error"] = "Internal server error"
		if h.cfg.Development() {
			body["details"] = err.Error()
		}
	}

	h.respondJSON(w, status, body)
}

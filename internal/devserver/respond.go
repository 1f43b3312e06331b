package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error bodies follow the backend's {"detail": "..."} convention.
type detailResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

const (
	detailNoCredentials   = "Authentication credentials were not provided."
	detailTokenNotValid   = "Given token not valid for any token type"
	detailNoActiveAccount = "No active account found with the given credentials"
	detailNotFound        = "No Project matches the given query."
	detailInvalidPage     = "Invalid page."
	detailAlreadyVoted    = "Already voted"
	detailVoted           = "Voted successfully"
	detailThrottled       = "Request was throttled."
	detailFieldRequired   = "This field is required."
)

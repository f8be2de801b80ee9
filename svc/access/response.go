package access

import (
	"encoding/json"
	"net/http"
)

// JSONResponse is the body of every gateway response.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request. Code is machine readable; for
// admission denials it is the decision reason.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, JSONResponse{Error: &ErrorDetail{
		Code:    code,
		Message: http.StatusText(status),
	}})
}

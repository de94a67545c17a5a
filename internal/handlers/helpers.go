package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := JSONResponse(w, payload); err != nil {
		w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service-layer error messages onto HTTP
// status codes. Authorization failures carry the "permission denied"
// prefix, lookups "not found"; everything else is a validation failure.
func respondWithServiceError(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, ErrMsgPermissionDenied):
		respondWithError(w, http.StatusForbidden, msg)
	case strings.Contains(msg, ErrMsgNotFound):
		respondWithError(w, http.StatusNotFound, msg)
	default:
		respondWithError(w, http.StatusBadRequest, msg)
	}
}

func getIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		return forwarded
	}
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// pathID parses a numeric {id}-style path value
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	return uint(id), err
}

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint(v), err
}

// Package respond writes JSON responses in the shape the web client expects.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"detail": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"detail": msg})
}

// DefaultBodyLimit caps JSON bodies read with Decode.
const DefaultBodyLimit = 1 << 20

// Decode reads a JSON body of at most DefaultBodyLimit bytes into dst.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return DecodeLimit(w, r, dst, DefaultBodyLimit)
}

// DecodeLimit reads a JSON body of at most limit bytes into dst. An oversized
// body yields an error matching *http.MaxBytesError.
func DecodeLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(dst)
}

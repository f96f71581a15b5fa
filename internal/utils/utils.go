package utils

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

// Round2 rounds to two decimal places, half away from zero (2.345 -> 2.35,
// -2.345 -> -2.35). Both the normalizer and the metrics engine use this so a
// derived average rounds exactly the same way as a stored reading.
// Deliberately not half-to-even: boundary values must match across every
// consumer of the data.
func Round2(x float64) float64 {
	if x >= 0 {
		return math.Floor(x*100+0.5) / 100
	}
	return math.Ceil(x*100-0.5) / 100
}

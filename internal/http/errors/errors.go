// Package errors provides request-scoped logging helpers. External-call
// failures are converted to structured JSON responses at the call site; this
// package only makes sure the underlying error lands in the server log with
// its request ID.
package errors

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

func LogError(r *http.Request, message string, err error) {
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		log.Printf("[ERROR] RequestID=%s: %s: %v", requestID, message, err)
		return
	}
	log.Printf("[ERROR] %s: %v", message, err)
}

func LogWarn(r *http.Request, message string, err error) {
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		log.Printf("[WARN] RequestID=%s: %s: %v", requestID, message, err)
		return
	}
	log.Printf("[WARN] %s: %v", message, err)
}

func LogInfo(r *http.Request, message string) {
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		log.Printf("[INFO] RequestID=%s: %s", requestID, message)
		return
	}
	log.Printf("[INFO] %s", message)
}

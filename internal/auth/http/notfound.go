package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

type notFoundResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NotFoundHandler answers every unregistered route.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, notFoundResponse{
			Code:      "not_found",
			Message:   fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path),
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

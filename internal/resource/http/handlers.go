package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
)

type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

type TimeResponse struct {
	Epoch int64  `json:"epoch" example:"1760572800"`
	ISO   string `json:"iso" example:"2025-10-16T00:00:00.000Z"`
}

// isoMillis is RFC 3339 in UTC with millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// PublicHandler godoc
//
//	@Summary		Public status
//	@Description	Unauthenticated liveness of the resource API.
//	@Tags			Resource
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/public [get].
func PublicHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}

// TimeHandler godoc
//
//	@Summary		Server time
//	@Description	Current server time. Requires a valid access token carrying the time:read scope.
//	@Tags			Resource
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	TimeResponse
//	@Failure		401	{object}	httpx.APIError	"unauthorized, details.reason names the verification failure"
//	@Failure		403	{object}	httpx.APIError	"forbidden, details.required and details.provided"
//	@Failure		429	{object}	httpx.APIError	"rate_limit_exceeded"
//	@Router			/time [get].
func TimeHandler(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := now().UTC()
		httpx.WriteJSON(w, http.StatusOK, TimeResponse{
			Epoch: t.Unix(),
			ISO:   t.Format(isoMillis),
		})
	}
}

// HealthHandler godoc
//
//	@Summary		Health
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/health [get].
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "healthy"})
	}
}

type readyResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version,omitempty"`
	JWKS    string `json:"jwks"`
}

// ReadyzHandler reports ready once the issuer's key set has been loaded.
func ReadyzHandler(startTime time.Time, version string, keys KeyCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			JWKS:    "ok",
		}
		code := http.StatusOK
		if !keys.Ready() {
			resp.Status = "not_ready"
			resp.JWKS = "not loaded"
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}

var errRouteNotFound = httpx.NotFound("Route not found")

// NotFoundHandler answers every unregistered route.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errRouteNotFound.WriteError(w)
	}
}

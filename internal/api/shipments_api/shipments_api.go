// Package shipments_api exposes the public, webhook and admin HTTP endpoints.
package shipments_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// RateLimiter guards the public lookup endpoint. Nil disables limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type ShipmentsAPI struct {
	svc         *shipments.Service
	limiter     RateLimiter
	lookupLimit int64
}

func New(svc *shipments.Service, limiter RateLimiter, lookupLimitPerMinute int64) *ShipmentsAPI {
	return &ShipmentsAPI{svc: svc, limiter: limiter, lookupLimit: lookupLimitPerMinute}
}

func (a *ShipmentsAPI) Routes(r chi.Router) {
	r.Get("/tracking/{code}", a.getTracking)
	r.Post("/webhook/courier-update", a.courierUpdate)
	r.Post("/admin/generate-code", a.generateCode)
	r.Post("/admin/generate-batch", a.generateBatch)
	r.Get("/admin/tracking-codes", a.listTrackingCodes)
}

func (a *ShipmentsAPI) getTracking(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if a.limiter != nil && a.lookupLimit > 0 {
		key := "rl:tracking:" + clientIP(r)
		ok, _, err := a.limiter.Allow(r.Context(), key, a.lookupLimit, time.Minute)
		if err != nil {
			// Limiter outages must not take down lookups.
			slog.Warn("rate limiter unavailable", "err", err)
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
			return
		}
	}

	view, err := a.svc.Track(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, shipments.ErrNotFound):
			writeError(w, http.StatusNotFound, "Tracking code not found or inactive", "NOT_FOUND")
		default:
			slog.Error("tracking lookup failed", "code", code, "err", err)
			writeError(w, http.StatusInternalServerError, "Database connection error", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (a *ShipmentsAPI) courierUpdate(w http.ResponseWriter, r *http.Request) {
	var upd shipments.CourierUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload", "")
		return
	}

	res, err := a.svc.ApplyCourierUpdate(r.Context(), upd)
	if err != nil {
		switch {
		case errors.Is(err, shipments.ErrInvalidPayload):
			slog.Warn("webhook validation failed", "err", err)
			writeError(w, http.StatusBadRequest, "Invalid webhook payload", "")
		case errors.Is(err, shipments.ErrNotFound):
			writeError(w, http.StatusNotFound, "Tracking code not found or inactive", "NOT_FOUND")
		case errors.Is(err, shipments.ErrTerminalStatus):
			writeError(w, http.StatusConflict, "Shipment already in terminal status", "TERMINAL_STATUS")
		default:
			slog.Error("webhook apply failed", "code", upd.TrackingCode, "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to update shipment", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Shipment updated successfully",
		"tracking_code": res.TrackingCode,
		"updated_at":    res.UpdatedAt.Format(time.RFC3339),
	})
}

func (a *ShipmentsAPI) generateCode(w http.ResponseWriter, r *http.Request) {
	tc, err := a.svc.IssueCode(r.Context())
	if err != nil {
		if errors.Is(err, codegen.ErrExhaustedRetries) {
			slog.Error("code generation exhausted retries")
		} else {
			slog.Error("code generation failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate tracking code", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"trackingCode": tc.Code,
		"message":      "Tracking code generated successfully",
	})
}

func (a *ShipmentsAPI) generateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	rows, err := a.svc.IssueBatch(r.Context(), req.Count)
	if err != nil {
		switch {
		case errors.Is(err, shipments.ErrStoreUnavailable), errors.Is(err, codegen.ErrExhaustedRetries):
			slog.Error("batch generation failed", "count", req.Count, "err", err)
			writeError(w, http.StatusInternalServerError, "Failed to generate tracking codes", "")
		default:
			writeError(w, http.StatusBadRequest, err.Error(), "")
		}
		return
	}

	codes := make([]string, 0, len(rows))
	for _, tc := range rows {
		codes = append(codes, tc.Code)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"trackingCodes": codes,
		"message":       "Tracking codes generated successfully",
	})
}

func (a *ShipmentsAPI) listTrackingCodes(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.ListTrackingCodes(r.Context(), 100)
	if err != nil {
		slog.Error("list tracking codes failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch tracking codes", "")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	body := map[string]string{"error": msg}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, body)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

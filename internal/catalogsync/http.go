// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/ikusare/internal/platform/apperr"
	"github.com/taibuivan/ikusare/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/ikusare/internal/platform/request"
	"github.com/taibuivan/ikusare/internal/platform/respond"
	"github.com/taibuivan/ikusare/internal/provider"
)

// # Handler Implementation

// Handler exposes the on-demand sync triggers.
//
// Every trigger answers with a JSON body carrying an "ok" boolean. A run gets
// its own wall-clock budget and is not cancelled when the client disconnects.
type Handler struct {
	orchestrator *Orchestrator
	runTimeout   time.Duration
}

// NewHandler constructs a trigger [Handler]. runTimeout bounds each run.
func NewHandler(orchestrator *Orchestrator, runTimeout time.Duration) *Handler {
	return &Handler{orchestrator: orchestrator, runTimeout: runTimeout}
}

// Routes returns a [chi.Router] configured with the trigger endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/all", handler.syncAll)
	router.Get("/status", handler.status)
	router.Post("/{provider}", handler.syncProvider)

	return router
}

// syncResponse is the trigger result envelope.
type syncResponse struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Imported *int   `json:"imported,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

/*
POST /sync/all.

Description: Runs every configured provider, honouring each provider's minimum
interval.

Response:
  - 200: {ok: true}: Every provider COMPLETED or was SKIPPED
  - 409: {ok: false}: Another run held the slot for the whole budget
  - 500: {ok: false}: At least one provider FAILED, or run metadata is unreadable
*/
func (handler *Handler) syncAll(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := handler.runContext(request)
	defer cancel()

	report, err := handler.orchestrator.RunAll(ctx, TriggerHTTP)
	if err != nil {
		handler.fail(writer, request, classify(err), nil, "")
		return
	}

	imported := report.Imported()
	if failure := report.FirstFailure(); failure != nil {
		handler.fail(writer, request, classify(failure.Err), &imported, report.RunID)
		return
	}

	respond.JSON(writer, http.StatusOK, syncResponse{
		OK: true,
		Message: fmt.Sprintf("Catalog synchronized: %d completed, %d skipped.",
			report.Count(StateCompleted), report.Count(StateSkipped)),
		Imported: &imported,
		RunID:    report.RunID,
	})
}

/*
POST /sync/{provider}.

Description: Runs one provider immediately, bypassing its minimum interval.

Response:
  - 200: {ok: true, imported}: Provider COMPLETED
  - 404: {ok: false}: Provider not configured
  - 409: {ok: false}: Another run held the slot for the whole budget
  - 500: {ok: false}: Provider FAILED or lacks its credential
*/
func (handler *Handler) syncProvider(writer http.ResponseWriter, request *http.Request) {
	name := requestutil.Param(request, "provider")

	ctx, cancel := handler.runContext(request)
	defer cancel()

	report, err := handler.orchestrator.RunProvider(ctx, name, true, TriggerHTTP)
	if err != nil {
		handler.fail(writer, request, classify(err), nil, "")
		return
	}

	imported := report.Imported()
	if failure := report.FirstFailure(); failure != nil {
		handler.fail(writer, request, classify(failure.Err), &imported, report.RunID)
		return
	}

	respond.JSON(writer, http.StatusOK, syncResponse{
		OK:       true,
		Message:  fmt.Sprintf("Provider %s synchronized.", name),
		Imported: &imported,
		RunID:    report.RunID,
	})
}

// statusResponse is the payload of GET /sync/status.
type statusResponse struct {
	Providers  []ProviderStatus `json:"providers"`
	LastReport *Report          `json:"last_report"`
}

/*
GET /sync/status.

Response:
  - 200: statusResponse: Provider schedule and the latest run report
*/
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	statuses, err := handler.orchestrator.Status(request.Context())
	if err != nil {
		respond.Error(writer, request, classify(err))
		return
	}

	latest, err := handler.orchestrator.LatestReport(request.Context())
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, statusResponse{Providers: statuses, LastReport: latest})
}

func (handler *Handler) runContext(request *http.Request) (context.Context, context.CancelFunc) {
	ctxutil.GetLogger(request.Context()).Info("sync_triggered",
		slog.String("path", request.URL.Path),
		slog.String("operator", requestutil.Operator(request)),
		slog.Duration("budget", handler.runTimeout),
	)
	return context.WithTimeout(context.WithoutCancel(request.Context()), handler.runTimeout)
}

func (handler *Handler) fail(writer http.ResponseWriter, request *http.Request, appError *apperr.AppError, imported *int, runID string) {
	appError = respond.Classify(request, appError)
	respond.JSON(writer, appError.HTTPStatus, syncResponse{
		OK:       false,
		Message:  appError.Message,
		Imported: imported,
		RunID:    runID,
	})
}

// classify maps a run error to its client-facing [apperr.AppError].
func classify(err error) *apperr.AppError {
	switch {
	case errors.Is(err, ErrUnknownProvider):
		return apperr.NotFound("Provider")
	case errors.Is(err, provider.ErrMissingCredential):
		return apperr.ConfigError("Provider credential is not configured", err)
	case errors.Is(err, ErrRunInProgress):
		return apperr.Conflict("Another catalog sync is still running")
	case errors.Is(err, ErrRunMetaUnavailable):
		return apperr.Internal(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.SyncFailed("Catalog sync exceeded its time budget", err)
	default:
		return apperr.SyncFailed("Catalog sync failed", err)
	}
}

// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/ikusare/internal/platform/request"
	"github.com/taibuivan/ikusare/internal/platform/respond"
	"github.com/taibuivan/ikusare/pkg/pagination"
)

// # Handler Implementation

// Handler exposes the merged catalogue read-only over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a catalogue [Handler].
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes returns a [chi.Router] configured with the catalogue endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listRecords)
	router.Get("/{key}", handler.getRecord)

	return router
}

/*
GET /api/v1/catalog.

Request:
  - provider: string (only records available on this provider)
  - limit: int
  - page: int

Response:
  - 200: []Record: Paginated list ordered by key
*/
func (handler *Handler) listRecords(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	filter := Filter{Provider: request.URL.Query().Get("provider")}

	records, total, err := handler.engine.List(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, records, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/catalog/{key}.

Response:
  - 200: Record: Success
  - 404: NOT_FOUND: No record under key
*/
func (handler *Handler) getRecord(writer http.ResponseWriter, request *http.Request) {
	key := requestutil.Param(request, "key")

	record, err := handler.engine.Get(request.Context(), key)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, record)
}

package quotes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/handlers"
	"github.com/mortarhq/mortar/pkg/routes"
)

// Handler provides the borrower-facing HTTP endpoints.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "quotes"),
	}
}

// Routes returns the route group definition for quote endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/quote", Handler: h.Quote},
			{Method: "POST", Pattern: "/qualify", Handler: h.Qualify},
			{Method: "GET", Pattern: "/programs/{id}", Handler: h.Program},
			{Method: "GET", Pattern: "/programs/{id}/qualifying", Handler: h.Reverse},
		},
	}
}

// Quote prices a borrower profile against every matching offering.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: malformed request body", ErrValidation))
		return
	}

	resp, err := h.sys.Quote(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Qualify is Quote with the strict schema: unknown fields are rejected
// and every profile field is required. The profile is stored for
// reverse matching.
func (h *Handler) Qualify(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req QuoteRequest
	if err := dec.Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: %v", ErrValidation, err))
		return
	}

	resp, err := h.sys.Qualify(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Program returns one offering in full by its UUID path parameter.
func (h *Handler) Program(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	detail, err := h.sys.Program(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}

// Reverse returns stored qualifying profiles the offering matches.
func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	profiles, err := h.sys.Reverse(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, profiles)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("%w: malformed id", ErrValidation))
		return uuid.Nil, false
	}
	return id, true
}

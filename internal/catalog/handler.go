package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/handlers"
	"github.com/mortarhq/mortar/pkg/pagination"
	"github.com/mortarhq/mortar/pkg/routes"
)

// Handler provides HTTP endpoints for catalog administration: lenders,
// program types, offerings, and qualifying profiles.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and offering filters for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	OfferingFilters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "catalog"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for catalog endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/catalog",
		Children: []routes.Group{
			{
				Prefix: "/lenders",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListLenders},
					{Method: "GET", Pattern: "/{id}", Handler: h.FindLender},
					{Method: "POST", Pattern: "", Handler: h.CreateLender},
					{Method: "PUT", Pattern: "/{id}", Handler: h.UpdateLender},
				},
			},
			{
				Prefix: "/program-types",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListProgramTypes},
					{Method: "GET", Pattern: "/{id}", Handler: h.FindProgramType},
					{Method: "PUT", Pattern: "", Handler: h.PutProgramType},
				},
			},
			{
				Prefix: "/offerings",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.ListOfferings},
					{Method: "GET", Pattern: "/{id}", Handler: h.FindOffering},
					{Method: "GET", Pattern: "/{id}/adjustments", Handler: h.Adjustments},
					{Method: "POST", Pattern: "/search", Handler: h.Search},
					{Method: "PUT", Pattern: "", Handler: h.PutOffering},
					{Method: "DELETE", Pattern: "/{id}", Handler: h.DeleteOffering},
				},
			},
			{
				Prefix: "/qualifying",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "", Handler: h.CreateQualifying},
				},
			},
		},
	}
}

// ListLenders returns a paginated list of lenders with optional filters.
func (h *Handler) ListLenders(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := LenderFiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListLenders(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// FindLender returns a single lender by its UUID path parameter.
func (h *Handler) FindLender(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	lender, err := h.sys.FindLender(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, lender)
}

// CreateLender creates a lender from a JSON command body.
func (h *Handler) CreateLender(w http.ResponseWriter, r *http.Request) {
	var cmd LenderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	lender, err := h.sys.CreateLender(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, lender)
}

// UpdateLender updates a lender identified by its UUID path parameter.
func (h *Handler) UpdateLender(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var cmd LenderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	lender, err := h.sys.UpdateLender(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, lender)
}

// ListProgramTypes returns a paginated list of program types with optional filters.
func (h *Handler) ListProgramTypes(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := ProgramTypeFiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListProgramTypes(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// FindProgramType returns a single program type by its UUID path parameter.
func (h *Handler) FindProgramType(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	pt, err := h.sys.FindProgramType(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pt)
}

// PutProgramType creates or updates a program type keyed by slug.
func (h *Handler) PutProgramType(w http.ResponseWriter, r *http.Request) {
	var cmd ProgramTypeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	pt, err := h.sys.PutProgramType(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pt)
}

// ListOfferings returns a paginated list of offerings with optional filters.
func (h *Handler) ListOfferings(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := OfferingFiltersFromQuery(r.URL.Query())

	result, err := h.sys.ListOfferings(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// FindOffering returns a single offering by its UUID path parameter.
func (h *Handler) FindOffering(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	offering, err := h.sys.FindOffering(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, offering)
}

// Adjustments returns the current adjustment set for an offering.
func (h *Handler) Adjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.sys.FindOffering(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	adjustments, err := h.sys.AdjustmentsFor(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, adjustments)
}

// Search accepts a JSON body with pagination and filter criteria and
// returns matching offerings.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.ListOfferings(r.Context(), req.PageRequest, req.OfferingFilters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// PutOffering creates or updates an offering keyed by (lender, program type).
func (h *Handler) PutOffering(w http.ResponseWriter, r *http.Request) {
	var cmd OfferingCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	offering, err := h.sys.PutOffering(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, offering)
}

// DeleteOffering removes an offering and its adjustments.
func (h *Handler) DeleteOffering(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.sys.DeleteOffering(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateQualifying stores an immutable borrower qualifying profile.
func (h *Handler) CreateQualifying(w http.ResponseWriter, r *http.Request) {
	var cmd QualifyingInfoCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return
	}

	qi, err := h.sys.CreateQualifyingInfo(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, qi)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrValidation)
		return uuid.Nil, false
	}
	return id, true
}

/*
handlers.go - HTTP API handlers for the optical shop engines

PURPOSE:
  Exposes the prescription, acuity and billing engines via REST API.
  Handles HTTP request/response and JSON serialization, and delegates to
  the domain packages. Editing is stateless: the client sends the record
  or item list it holds and gets the recomputed one back.

ENDPOINTS:
  Prescriptions:
    GET    /api/prescriptions/new        Blank record
    POST   /api/prescriptions/edit       Apply one edit, return record + evaluation
    POST   /api/prescriptions/evaluate   Derive and classify a record
    POST   /api/prescriptions            Save a new record
    PUT    /api/prescriptions/{id}       Update a stored record
    GET    /api/prescriptions/{id}       Load a record
    GET    /api/prescriptions?q=&field=  Search
    GET    /api/prescriptions/{id}/bills Bills for a record

  Acuity:
    POST   /api/acuity/analyze           Classify one VN

  Billing:
    POST   /api/billing/discount         Apply a global discount
    POST   /api/billing/items/discount   Edit one item's discount
    POST   /api/billing/items            Add, remove or edit an item
    POST   /api/billing/summary          Bill footer totals
    POST   /api/bills                    Save a bill
    GET    /api/bills/{id}               Load a bill

  Other:
    GET    /api/health
    GET    /api/tables                   Active limit tables

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, rejected discount, bad search
  - 404: Record or bill not found
  - 409: Duplicate prescription number
  - 422: Field validation failed (details lists the fields)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/factory"
	"github.com/warp/optical-engine/generic"
	"github.com/warp/optical-engine/prescription"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Prescriptions *prescription.Service
	Bills         *billing.Service
	TablesFactory *factory.TablesFactory

	log zerolog.Logger
}

func NewHandler(prescriptions *prescription.Service, bills *billing.Service, log zerolog.Logger) *Handler {
	return &Handler{
		Prescriptions: prescriptions,
		Bills:         bills,
		TablesFactory: factory.NewTablesFactory(),
		log:           log.With().Str("component", "api").Logger(),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTables returns the limit tables in the same format TABLES_FILE uses.
func (h *Handler) GetTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.TablesFactory.ToJSON(h.Prescriptions.Tables()))
}

// =============================================================================
// PRESCRIPTION HANDLERS
// =============================================================================

func (h *Handler) NewPrescription(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recordResponse(prescription.NewRecord()))
}

// EditPrescription applies one edit and returns the re-derived record.
func (h *Handler) EditPrescription(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tables := h.Prescriptions.Tables()
	rec := req.Record

	if req.Update != nil {
		if !req.Update.Locator.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown field", fmt.Errorf("%s", req.Update.Locator))
			return
		}
		rec = tables.Apply(rec, *req.Update)
	}
	if req.Header != nil {
		var ok bool
		if rec, ok = prescription.SetHeader(rec, req.Header.Field, req.Header.Value); !ok {
			writeError(w, http.StatusBadRequest, "Unknown header field", fmt.Errorf("%q", req.Header.Field))
			return
		}
	}
	if req.Remark != nil {
		var ok bool
		if rec, ok = prescription.SetRemark(rec, req.Remark.Field, req.Remark.On); !ok {
			writeError(w, http.StatusBadRequest, "Unknown remark", fmt.Errorf("%q", req.Remark.Field))
			return
		}
	}
	if req.BalanceLens != nil {
		rec = tables.SetBalanceLens(rec, *req.BalanceLens)
	}

	writeJSON(w, http.StatusOK, h.recordResponse(tables.DeriveAll(rec)))
}

func (h *Handler) EvaluatePrescription(w http.ResponseWriter, r *http.Request) {
	var rec prescription.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	writeJSON(w, http.StatusOK, h.recordResponse(h.Prescriptions.Tables().DeriveAll(rec)))
}

func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	h.savePrescription(w, r, "", http.StatusCreated)
}

func (h *Handler) UpdatePrescription(w http.ResponseWriter, r *http.Request) {
	h.savePrescription(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) savePrescription(w http.ResponseWriter, r *http.Request, existingID string, status int) {
	var rec prescription.Record
	if !decodeJSON(w, r, &rec) {
		return
	}
	saved, err := h.Prescriptions.Save(r.Context(), rec, existingID)
	if err != nil {
		h.writeDomainError(w, r, "Failed to save prescription", err)
		return
	}
	writeJSON(w, status, h.recordResponse(saved))
}

func (h *Handler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Prescriptions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load prescription", err)
		return
	}
	writeJSON(w, http.StatusOK, h.recordResponse(rec))
}

// SearchPrescriptions defaults to searching by name.
func (h *Handler) SearchPrescriptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	field := prescription.SearchField(r.URL.Query().Get("field"))
	if field == "" {
		field = prescription.SearchName
	}

	records, err := h.Prescriptions.Search(r.Context(), query, field)
	if err != nil {
		h.writeDomainError(w, r, "Search failed", err)
		return
	}
	if records == nil {
		records = []prescription.Record{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Field: field, Query: strings.TrimSpace(query), Results: records})
}

func (h *Handler) ListPrescriptionBills(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Prescriptions.Load(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to load prescription", err)
		return
	}
	bills, err := h.Bills.List(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to list bills", err)
		return
	}
	out := make([]BillResponse, len(bills))
	for i, b := range bills {
		out[i] = toBillResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) recordResponse(rec prescription.Record) RecordResponse {
	return RecordResponse{Record: rec, Evaluation: h.Prescriptions.Tables().Evaluate(rec)}
}

// =============================================================================
// ACUITY HANDLERS
// =============================================================================

func (h *Handler) AnalyzeAcuity(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var refraction *acuity.Refraction
	if !generic.IsBlank(req.Age) {
		refraction = &acuity.Refraction{Sph: orPlano(req.Sph), Cyl: orPlano(req.Cyl), Age: req.Age}
	}
	va := acuity.ValidateAndFormatVn(req.Vn, refraction)
	if va == nil {
		h.writeDomainError(w, r, "Invalid VN", generic.ValidationErrors{{
			Field:   "vn",
			Code:    generic.CodeInvalidVn,
			Message: fmt.Sprintf("%q is not a Snellen fraction", req.Vn),
		}})
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Acuity: va})
}

func orPlano(v string) string {
	if generic.IsBlank(v) {
		return "0"
	}
	return v
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := billing.ApplyGlobalDiscount(req.Items, req.Discount)
	if err != nil {
		h.writeDomainError(w, r, "Discount rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) EditItemDiscount(w http.ResponseWriter, r *http.Request) {
	var req ItemDiscountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var item billing.LineItem
	switch {
	case req.Amount != nil:
		item = billing.EditDiscountAmount(req.Item, *req.Amount)
	case req.Percent != nil:
		item = billing.EditDiscountPercent(req.Item, *req.Percent)
	default:
		writeError(w, http.StatusBadRequest, "Set amount or percent", nil)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) EditItems(w http.ResponseWriter, r *http.Request) {
	var req ItemEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var (
		items []billing.LineItem
		err   error
	)
	switch req.Action {
	case ItemAdd:
		items = billing.AddItem(req.Items, billing.NewItem(req.Description, req.Rate, req.Qty))
	case ItemRemove:
		items = billing.RemoveItem(req.Items, req.SI)
	case ItemRate:
		items, err = billing.UpdateItem(req.Items, req.SI, func(i billing.LineItem) billing.LineItem {
			return billing.SetRate(i, req.Value)
		})
	case ItemQty:
		items, err = billing.UpdateItem(req.Items, req.SI, func(i billing.LineItem) billing.LineItem {
			return billing.SetQty(i, req.Value)
		})
	case ItemTax:
		items, err = billing.UpdateItem(req.Items, req.SI, func(i billing.LineItem) billing.LineItem {
			return billing.SetTaxPercent(i, req.Value)
		})
	default:
		writeError(w, http.StatusBadRequest, "Unknown action", fmt.Errorf("%q", req.Action))
		return
	}
	if err != nil {
		h.writeDomainError(w, r, "Item edit failed", err)
		return
	}
	if items == nil {
		items = []billing.LineItem{}
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown bill kind", fmt.Errorf("%q", req.Kind))
		return
	}
	b := billing.Bill{Kind: req.Kind, Items: req.Items, Advance: req.Advance}
	writeJSON(w, http.StatusOK, b.Summary())
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var b billing.Bill
	if !decodeJSON(w, r, &b) {
		return
	}
	saved, err := h.Bills.Save(r.Context(), b)
	if err != nil {
		h.writeDomainError(w, r, "Failed to save bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(saved))
}

func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bills.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to load bill", err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(b))
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status. Validation failures
// carry the field errors as details.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var fields generic.ValidationErrors
	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: message, Details: fields})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

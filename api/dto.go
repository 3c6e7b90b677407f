/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types
  (prescription.Record, billing.LineItem, ...) already carry JSON tags and
  are embedded directly; the types here wrap them into request and
  response envelopes.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers

TYPES:
  Prescriptions:
    EditRequest, RecordResponse, SearchResponse

  Acuity:
    AnalyzeRequest

  Billing:
    DiscountRequest, ItemDiscountRequest, ItemEditRequest,
    SummaryRequest, BillResponse

VALIDATION:
  Validation is done in handlers and domain packages, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - prescription/types.go, billing/types.go: Embedded domain types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/optical-engine/acuity"
	"github.com/warp/optical-engine/billing"
	"github.com/warp/optical-engine/prescription"
)

// =============================================================================
// PRESCRIPTIONS
// =============================================================================

// EditRequest applies one edit to a record held by the client. Exactly one
// of Update, Header, Remark or BalanceLens is expected; when several are
// set they are applied in that order.
type EditRequest struct {
	Record      prescription.Record  `json:"record"`
	Update      *prescription.Update `json:"update,omitempty"`
	Header      *HeaderEdit          `json:"header,omitempty"`
	Remark      *RemarkEdit          `json:"remark,omitempty"`
	BalanceLens *bool                `json:"balanceLens,omitempty"`
}

type HeaderEdit struct {
	Field prescription.HeaderField `json:"field"`
	Value string                   `json:"value"`
}

type RemarkEdit struct {
	Field prescription.RemarkField `json:"field"`
	On    bool                     `json:"on"`
}

// RecordResponse is a record with its classification.
type RecordResponse struct {
	Record     prescription.Record     `json:"record"`
	Evaluation prescription.Evaluation `json:"evaluation"`
}

type SearchResponse struct {
	Field   prescription.SearchField `json:"field"`
	Query   string                   `json:"query"`
	Results []prescription.Record    `json:"results"`
}

// =============================================================================
// ACUITY
// =============================================================================

// AnalyzeRequest classifies a single distance VN. Sph, Cyl and Age are
// optional; the comparison is attached only when Age is given.
type AnalyzeRequest struct {
	Vn  string `json:"vn"`
	Sph string `json:"sph"`
	Cyl string `json:"cyl"`
	Age string `json:"age"`
}

type AnalyzeResponse struct {
	Acuity *acuity.VisualAcuity `json:"acuity"`
}

// =============================================================================
// BILLING
// =============================================================================

type DiscountRequest struct {
	Items    []billing.LineItem `json:"items"`
	Discount billing.Discount   `json:"discount"`
}

// ItemDiscountRequest edits the discount of one item. Set Amount or
// Percent, not both; Amount wins.
type ItemDiscountRequest struct {
	Item    billing.LineItem `json:"item"`
	Amount  *string          `json:"amount,omitempty"`
	Percent *string          `json:"percent,omitempty"`
}

// Item edit actions.
const (
	ItemAdd    = "add"
	ItemRemove = "remove"
	ItemRate   = "rate"
	ItemQty    = "qty"
	ItemTax    = "tax"
)

// ItemEditRequest changes the item list. Add uses Description, Rate and
// Qty; remove uses SI; rate, qty and tax set Value on item SI.
type ItemEditRequest struct {
	Items       []billing.LineItem `json:"items"`
	Action      string             `json:"action"`
	SI          int                `json:"si"`
	Description string             `json:"description"`
	Rate        string             `json:"rate"`
	Qty         string             `json:"qty"`
	Value       string             `json:"value"`
}

type ItemsResponse struct {
	Items []billing.LineItem `json:"items"`
}

type SummaryRequest struct {
	Kind    billing.BillKind   `json:"kind"`
	Items   []billing.LineItem `json:"items"`
	Advance decimal.Decimal    `json:"advance"`
}

type BillResponse struct {
	Bill    billing.Bill    `json:"bill"`
	Summary billing.Summary `json:"summary"`
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toBillResponse(b billing.Bill) BillResponse {
	return BillResponse{Bill: b, Summary: b.Summary()}
}

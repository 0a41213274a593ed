/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the internal
  domain model from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Monetary amounts cross the wire as strings with two-digit precision
  (round half up), never as binary floats.
*/
package api

import (
	"time"

	"github.com/kegtracer/engine/ledger"
)

// =============================================================================
// CLIENTS
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateClientRequest is the request to create a client.
type CreateClientRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	TaxID   string `json:"tax_id"`
}

func toClientDTO(c ledger.Client) ClientDTO {
	return ClientDTO{
		ID:        int64(c.ID),
		Name:      c.Name,
		Address:   c.Address,
		Email:     c.Email,
		TaxID:     c.TaxID,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// BEERS
// =============================================================================

// BeerDTO represents a catalog row in API responses.
type BeerDTO struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	VolumeLiters  float64 `json:"volume_liters"`
	PriceTTC      string  `json:"price_ttc"`
	DepositPerKeg string  `json:"deposit_per_keg"`
}

// CreateBeerRequest is the request to add a catalog row. Amounts are decimal
// strings; an empty deposit uses the standard consigne.
type CreateBeerRequest struct {
	Name          string  `json:"name"`
	VolumeLiters  float64 `json:"volume_liters"`
	PriceTTC      string  `json:"price_ttc"`
	DepositPerKeg string  `json:"deposit_per_keg"`
}

func toBeerDTO(b ledger.Beer) BeerDTO {
	return BeerDTO{
		ID:            int64(b.ID),
		Name:          b.Name,
		VolumeLiters:  b.VolumeLiters,
		PriceTTC:      ledger.FormatMoney(b.PriceTTC),
		DepositPerKeg: ledger.FormatMoney(b.DepositPerKeg),
	}
}

// =============================================================================
// MOVEMENTS
// =============================================================================

// MovementDTO represents one ledger entry in API responses.
type MovementDTO struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	ClientID      int64  `json:"client_id"`
	BeerID        int64  `json:"beer_id"`
	Quantity      int    `json:"quantity"`
	PricePerKeg   string `json:"price_per_keg"`
	DepositPerKeg string `json:"deposit_per_keg"`
	Note          string `json:"note,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// CreateMovementRequest is the JSON ingestion payload for a movement.
type CreateMovementRequest struct {
	Date           string `json:"date"`
	Type           string `json:"type"`
	ClientID       int64  `json:"client_id"`
	BeerID         int64  `json:"beer_id"`
	Quantity       int    `json:"quantity"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotency_key"`
}

func toMovementDTO(m ledger.Movement) MovementDTO {
	return MovementDTO{
		ID:            string(m.ID),
		Date:          m.Date.Format("2006-01-02"),
		Type:          string(m.Type),
		ClientID:      int64(m.ClientID),
		BeerID:        int64(m.BeerID),
		Quantity:      m.Quantity,
		PricePerKeg:   ledger.FormatMoney(m.PricePerKeg),
		DepositPerKeg: ledger.FormatMoney(m.DepositPerKeg),
		Note:          m.Note,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportDTO carries the aggregates for one scope.
type ReportDTO struct {
	Delivered          int64  `json:"delivered"`
	ReturnedFull       int64  `json:"returned_full"`
	ReturnedEmpty      int64  `json:"returned_empty"`
	OutstandingKegs    int64  `json:"outstanding_kegs"`
	OutstandingEmpties int64  `json:"outstanding_empties"`
	DepositCharged     string `json:"deposit_charged"`
	DepositRefunded    string `json:"deposit_refunded"`
	DepositBalance     string `json:"deposit_balance"`
	GoodsTotal         string `json:"goods_total"`
}

// ClientReportDTO is one per-client breakdown row.
type ClientReportDTO struct {
	ClientID   int64  `json:"client_id"`
	ClientName string `json:"client_name"`
	ReportDTO
}

// BeerReportDTO is one per-beer breakdown row.
type BeerReportDTO struct {
	BeerID   int64  `json:"beer_id"`
	BeerName string `json:"beer_name"`
	ReportDTO
}

// ReportResponse is the full reporting payload.
type ReportResponse struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Totals   ReportDTO         `json:"totals"`
	ByClient []ClientReportDTO `json:"by_client"`
	ByBeer   []BeerReportDTO   `json:"by_beer"`
}

func toReportDTO(r ledger.Report) ReportDTO {
	return ReportDTO{
		Delivered:          r.Delivered,
		ReturnedFull:       r.ReturnedFull,
		ReturnedEmpty:      r.ReturnedEmpty,
		OutstandingKegs:    r.OutstandingKegs,
		OutstandingEmpties: r.OutstandingEmpties,
		DepositCharged:     ledger.FormatMoney(r.DepositCharged),
		DepositRefunded:    ledger.FormatMoney(r.DepositRefunded),
		DepositBalance:     ledger.FormatMoney(r.DepositBalance),
		GoodsTotal:         ledger.FormatMoney(r.GoodsTotal),
	}
}

func toReportResponse(res *ledger.ReportResult) ReportResponse {
	resp := ReportResponse{
		From:     res.Range.From.Format("2006-01-02"),
		To:       res.Range.To.Format("2006-01-02"),
		Totals:   toReportDTO(res.Totals),
		ByClient: make([]ClientReportDTO, 0, len(res.ByClient)),
		ByBeer:   make([]BeerReportDTO, 0, len(res.ByBeer)),
	}
	for _, cr := range res.ByClient {
		resp.ByClient = append(resp.ByClient, ClientReportDTO{
			ClientID:   int64(cr.ClientID),
			ClientName: cr.ClientName,
			ReportDTO:  toReportDTO(cr.Report),
		})
	}
	for _, br := range res.ByBeer {
		resp.ByBeer = append(resp.ByBeer, BeerReportDTO{
			BeerID:    int64(br.BeerID),
			BeerName:  br.BeerName,
			ReportDTO: toReportDTO(br.Report),
		})
	}
	return resp
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

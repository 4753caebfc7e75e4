/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ON THE WIRE:
  Decimal amounts are serialized as strings ("2426.686"), never floats.
  Clients that need numbers parse them; the server never rounds through
  float64.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/housing-ledger/billing"
	"github.com/warp/housing-ledger/dispatch"
	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/metering"
	"github.com/warp/housing-ledger/reports"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Owner       string `json:"owner"`
	Balance     string `json:"balance"`
	Subsidy     bool   `json:"subsidy"`
	LastPayment string `json:"last_payment,omitempty"`
}

func toAccountDTO(a domain.Account) AccountDTO {
	dto := AccountDTO{
		ID:      a.ID,
		Address: a.Address,
		Owner:   a.Owner,
		Balance: a.Balance.String(),
		Subsidy: a.Subsidy,
	}
	if a.LastPayment != nil {
		dto.LastPayment = a.LastPayment.String()
	}
	return dto
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
	Subsidy bool   `json:"subsidy"`
}

// UpdateAccountRequest carries mutable account fields. Nil means "leave
// unchanged"; the id itself is immutable.
type UpdateAccountRequest struct {
	Address *string `json:"address,omitempty"`
	Owner   *string `json:"owner,omitempty"`
	Balance *string `json:"balance,omitempty"`
	Subsidy *bool   `json:"subsidy,omitempty"`
}

// PostPaymentRequest posts a payment against an account.
type PostPaymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date,omitempty"` // default: today
}

// =============================================================================
// TICKETS
// =============================================================================

// TicketDTO represents a dispatch ticket in API responses.
type TicketDTO struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	Address    string `json:"address"`
	Problem    string `json:"problem"`
	Contact    string `json:"contact,omitempty"`
	Status     string `json:"status"`
	Contractor string `json:"contractor,omitempty"`
}

func toTicketDTO(t domain.Ticket) TicketDTO {
	return TicketDTO{
		ID:         t.ID,
		CreatedAt:  t.CreatedAt.String(),
		Address:    t.Address,
		Problem:    t.Problem,
		Contact:    t.Contact,
		Status:     string(t.Status),
		Contractor: t.Contractor,
	}
}

// OpenTicketRequest creates a new dispatch ticket.
type OpenTicketRequest struct {
	Address string `json:"address"`
	Problem string `json:"problem"`
	Contact string `json:"contact,omitempty"`
}

// AssignContractorRequest binds a contractor to a ticket by name.
type AssignContractorRequest struct {
	Contractor string `json:"contractor"`
}

// CloseTicketResponse reports the close outcome.
type CloseTicketResponse struct {
	Ticket        TicketDTO `json:"ticket"`
	AlreadyClosed bool      `json:"already_closed"`
}

func toCloseTicketResponse(r dispatch.CloseResult) CloseTicketResponse {
	return CloseTicketResponse{
		Ticket:        toTicketDTO(r.Ticket),
		AlreadyClosed: r.AlreadyClosed,
	}
}

// =============================================================================
// METERS
// =============================================================================

// ReadingDTO is one dated counter value.
type ReadingDTO struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// MeterDTO represents a meter with its full reading history.
type MeterDTO struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Address  string       `json:"address"`
	Readings []ReadingDTO `json:"readings"`
}

func toMeterDTO(m domain.Meter) MeterDTO {
	dto := MeterDTO{
		ID:       m.ID,
		Type:     string(m.Type),
		Address:  m.Address,
		Readings: make([]ReadingDTO, len(m.Readings)),
	}
	for i, r := range m.Readings {
		dto.Readings[i] = ReadingDTO{Date: r.Date.String(), Value: r.Value.String()}
	}
	return dto
}

// CreateMeterRequest creates a meter with its required initial reading.
type CreateMeterRequest struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Address        string     `json:"address"`
	InitialReading ReadingDTO `json:"initial_reading"`
}

// AppendReadingRequest appends a reading to a meter's history.
type AppendReadingRequest struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// ConsumptionIntervalDTO is one delta between consecutive readings.
type ConsumptionIntervalDTO struct {
	IntervalEnd string `json:"interval_end"`
	Delta       string `json:"delta"`
}

func toConsumptionDTOs(series []metering.ConsumptionInterval) []ConsumptionIntervalDTO {
	out := make([]ConsumptionIntervalDTO, len(series))
	for i, iv := range series {
		out[i] = ConsumptionIntervalDTO{
			IntervalEnd: iv.IntervalEnd.String(),
			Delta:       iv.Delta.String(),
		}
	}
	return out
}

// =============================================================================
// CONTRACTORS
// =============================================================================

// ContractorDTO represents a contractor in API responses.
type ContractorDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Contact   string `json:"contact,omitempty"`
}

func toContractorDTO(c domain.Contractor) ContractorDTO {
	return ContractorDTO{ID: c.ID, Name: c.Name, Specialty: c.Specialty, Contact: c.Contact}
}

// CreateContractorRequest registers a new contractor.
type CreateContractorRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Contact   string `json:"contact,omitempty"`
}

// =============================================================================
// BILLING
// =============================================================================

// LineItemDTO is one charged service of a statement.
type LineItemDTO struct {
	Service string `json:"service"`
	Rate    string `json:"rate"`
	Volume  string `json:"volume"`
	Amount  string `json:"amount"`
}

// StatementDTO is the charge breakdown for one account.
type StatementDTO struct {
	AccountID      string        `json:"account_id"`
	LineItems      []LineItemDTO `json:"line_items"`
	Subtotal       string        `json:"subtotal"`
	SubsidyApplied bool          `json:"subsidy_applied"`
	TotalDue       string        `json:"total_due"`
}

func toStatementDTO(st billing.Statement) StatementDTO {
	dto := StatementDTO{
		AccountID:      st.AccountID,
		LineItems:      make([]LineItemDTO, len(st.LineItems)),
		Subtotal:       st.Subtotal.String(),
		SubsidyApplied: st.SubsidyApplied,
		TotalDue:       st.TotalDue.String(),
	}
	for i, li := range st.LineItems {
		dto.LineItems[i] = LineItemDTO{
			Service: li.Service,
			Rate:    li.Rate.String(),
			Volume:  li.Volume.String(),
			Amount:  li.Amount.String(),
		}
	}
	return dto
}

// TariffDTO is one service of the fixed catalog.
type TariffDTO struct {
	Service string `json:"service"`
	Rate    string `json:"rate"`
	Volume  string `json:"volume"`
}

func toTariffDTOs(catalog []billing.Tariff) []TariffDTO {
	out := make([]TariffDTO, len(catalog))
	for i, t := range catalog {
		out[i] = TariffDTO{Service: t.Service, Rate: t.Rate.String(), Volume: t.Volume.String()}
	}
	return out
}

// =============================================================================
// REPORTS
// =============================================================================

// DebtorEntryDTO is one row of the debtor ranking.
type DebtorEntryDTO struct {
	Rank    int    `json:"rank"`
	Owner   string `json:"owner"`
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func toDebtorDTOs(entries []reports.DebtorEntry) []DebtorEntryDTO {
	out := make([]DebtorEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = DebtorEntryDTO{
			Rank:    e.Rank,
			Owner:   e.Owner,
			Address: e.Address,
			Balance: e.Balance.String(),
		}
	}
	return out
}

// TicketSummaryDTO groups ticket counts by status and contractor.
type TicketSummaryDTO struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByContractor map[string]int `json:"by_contractor"`
}

func toTicketSummaryDTO(s reports.TicketSummary) TicketSummaryDTO {
	dto := TicketSummaryDTO{
		Total:        s.Total,
		ByStatus:     make(map[string]int, len(s.ByStatus)),
		ByContractor: s.ByContractor,
	}
	for status, n := range s.ByStatus {
		dto.ByStatus[string(status)] = n
	}
	return dto
}

// MeterSummaryDTO counts meters by type.
type MeterSummaryDTO struct {
	ByType map[string]int `json:"by_type"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

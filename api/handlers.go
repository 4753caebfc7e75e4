/*
handlers.go - HTTP API handlers for the housing-utility ledger

PURPOSE:
  Exposes the ledger core via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain engines. The core performs
  no text layout or formatting; everything returned here is structured.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                 List accounts
    POST   /api/accounts                 Create account
    GET    /api/accounts/{id}            Get account
    PUT    /api/accounts/{id}            Update mutable fields
    DELETE /api/accounts/{id}            Delete account (no cascade)
    GET    /api/accounts/{id}/charges    Billing statement
    POST   /api/accounts/{id}/payments   Post a payment

  Tickets:
    GET    /api/tickets                  List tickets
    POST   /api/tickets                  Open ticket
    GET    /api/tickets/{id}             Get ticket
    POST   /api/tickets/{id}/assign      Assign contractor (-> InProgress)
    POST   /api/tickets/{id}/close       Close ticket (idempotent)

  Meters:
    GET    /api/meters                   List meters
    POST   /api/meters                   Create meter with initial reading
    GET    /api/meters/types             Meter type suggestion set
    GET    /api/meters/{id}              Get meter with history
    POST   /api/meters/{id}/readings     Append reading
    GET    /api/meters/{id}/readings/latest  Latest reading
    GET    /api/meters/{id}/consumption  Consumption series
    DELETE /api/meters/{id}              Delete meter

  Contractors:
    GET    /api/contractors              List contractors
    POST   /api/contractors              Register contractor

  Tariffs:
    GET    /api/tariffs                  Fixed tariff catalog

  Reports:
    GET    /api/reports/debtors?limit=N  Debtor ranking (default 5)
    GET    /api/reports/tickets          Ticket summary
    GET    /api/reports/meters           Meter type summary

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ERROR HANDLING:
  Domain errors map to HTTP status without crashing the process:
  - 400: invalid input (bad numbers, bad dates, missing fields)
  - 404: entity not found
  - 409: duplicate id on create
  - 422: invalid contractor binding, insufficient reading data
  - 500: everything else

SEE ALSO:
  - dto.go:     Request/response data structures
  - server.go:  Router setup and middleware
  - scenarios.go: Demo dataset loaders
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/housing-ledger/billing"
	"github.com/warp/housing-ledger/dispatch"
	"github.com/warp/housing-ledger/domain"
	"github.com/warp/housing-ledger/metering"
	"github.com/warp/housing-ledger/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    domain.Store
	Metering *metering.Engine
	Dispatch *dispatch.Engine
	Reports  *reports.Aggregator
	Log      zerolog.Logger

	// Resetter is optional: when the store supports a full wipe (used by
	// the scenario loader), set it. Nil disables scenario loading.
	Resetter func() error

	currentScenario string
}

// NewHandler wires the engines around one store.
func NewHandler(store domain.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:    store,
		Metering: metering.NewEngine(store),
		Dispatch: dispatch.NewEngine(store),
		Reports:  reports.NewAggregator(store),
		Log:      log,
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts in creation order.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = toAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates an account with a caller-supplied id.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Account id is required", nil)
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Balance must be a decimal number", err)
			return
		}
	}

	a := domain.Account{
		ID:      req.ID,
		Address: req.Address,
		Owner:   req.Owner,
		Balance: balance,
		Subsidy: req.Subsidy,
	}
	if err := h.Store.CreateAccount(r.Context(), a); err != nil {
		h.writeDomainError(w, r, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(a))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// UpdateAccount applies the supplied field changes.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	var balance *decimal.Decimal
	if req.Balance != nil {
		b, err := decimal.NewFromString(*req.Balance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Balance must be a decimal number", err)
			return
		}
		balance = &b
	}

	err := h.Store.UpdateAccount(r.Context(), id, func(a *domain.Account) error {
		if req.Address != nil {
			a.Address = *req.Address
		}
		if req.Owner != nil {
			a.Owner = *req.Owner
		}
		if req.Subsidy != nil {
			a.Subsidy = *req.Subsidy
		}
		if balance != nil {
			a.Balance = *balance
		}
		return nil
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to update account", err)
		return
	}

	a, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to reload account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// DeleteAccount removes the account. Tickets and meters referencing it
// are left untouched.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCharges returns the billing statement for an account.
func (h *Handler) GetCharges(w http.ResponseWriter, r *http.Request) {
	a, err := h.Store.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(billing.ComputeCharges(a)))
}

// PostPayment posts a payment against the account balance.
func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PostPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Amount must be a decimal number", err)
		return
	}

	date := domain.Today()
	if req.Date != "" {
		date, err = domain.ParseDate(req.Date)
		if err != nil {
			h.writeDomainError(w, r, "Invalid payment date", err)
			return
		}
	}

	if err := billing.PostPayment(r.Context(), h.Store, id, amount, date); err != nil {
		h.writeDomainError(w, r, "Failed to post payment", err)
		return
	}

	a, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to reload account", err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(a))
}

// =============================================================================
// TICKET HANDLERS
// =============================================================================

// ListTickets returns all tickets in creation order.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Store.ListTickets(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list tickets", err)
		return
	}

	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = toTicketDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// OpenTicket creates a new Open ticket with a generated REQ-#### id.
func (h *Handler) OpenTicket(w http.ResponseWriter, r *http.Request) {
	var req OpenTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	t, err := h.Dispatch.OpenTicket(r.Context(), req.Address, req.Problem, req.Contact)
	if err != nil {
		h.writeDomainError(w, r, "Failed to open ticket", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTicketDTO(t))
}

// GetTicket returns a single ticket.
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTicket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get ticket", err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// AssignContractor binds a contractor and moves the ticket to InProgress.
func (h *Handler) AssignContractor(w http.ResponseWriter, r *http.Request) {
	var req AssignContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	t, err := h.Dispatch.AssignContractor(r.Context(), chi.URLParam(r, "id"), req.Contractor)
	if err != nil {
		h.writeDomainError(w, r, "Failed to assign contractor", err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(t))
}

// CloseTicket closes the ticket; closing twice reports already_closed.
func (h *Handler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	result, err := h.Dispatch.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to close ticket", err)
		return
	}
	writeJSON(w, http.StatusOK, toCloseTicketResponse(result))
}

// =============================================================================
// METER HANDLERS
// =============================================================================

// ListMeters returns all meters with their reading histories.
func (h *Handler) ListMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := h.Store.ListMeters(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list meters", err)
		return
	}

	dtos := make([]MeterDTO, len(meters))
	for i, m := range meters {
		dtos[i] = toMeterDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMeter creates a meter with its required initial reading.
func (h *Handler) CreateMeter(w http.ResponseWriter, r *http.Request) {
	var req CreateMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Meter id is required", nil)
		return
	}

	reading, err := parseReading(req.InitialReading.Date, req.InitialReading.Value)
	if err != nil {
		h.writeDomainError(w, r, "Invalid initial reading", err)
		return
	}

	m := domain.Meter{
		ID:       req.ID,
		Type:     domain.MeterType(req.Type),
		Address:  req.Address,
		Readings: []domain.Reading{reading},
	}
	if err := h.Store.CreateMeter(r.Context(), m); err != nil {
		h.writeDomainError(w, r, "Failed to create meter", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeterDTO(m))
}

// GetMeter returns a meter with its full reading history.
func (h *Handler) GetMeter(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetMeter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get meter", err)
		return
	}
	writeJSON(w, http.StatusOK, toMeterDTO(m))
}

// AppendReading appends a reading at the end of the meter's history.
func (h *Handler) AppendReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AppendReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	reading, err := parseReading(req.Date, req.Value)
	if err != nil {
		h.writeDomainError(w, r, "Invalid reading", err)
		return
	}

	if err := h.Metering.AppendReading(r.Context(), id, reading.Date, reading.Value); err != nil {
		h.writeDomainError(w, r, "Failed to append reading", err)
		return
	}

	m, err := h.Store.GetMeter(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to reload meter", err)
		return
	}
	writeJSON(w, http.StatusOK, toMeterDTO(m))
}

// LatestReading returns the chronologically last reading.
func (h *Handler) LatestReading(w http.ResponseWriter, r *http.Request) {
	reading, ok, err := h.Metering.LatestReading(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to get latest reading", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Meter has no readings", nil)
		return
	}
	writeJSON(w, http.StatusOK, ReadingDTO{Date: reading.Date.String(), Value: reading.Value.String()})
}

// GetConsumption returns the per-interval consumption series.
func (h *Handler) GetConsumption(w http.ResponseWriter, r *http.Request) {
	series, err := h.Metering.ConsumptionSeries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, "Failed to compute consumption", err)
		return
	}
	writeJSON(w, http.StatusOK, toConsumptionDTOs(series))
}

// DeleteMeter removes a meter and its readings.
func (h *Handler) DeleteMeter(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMeter(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, r, "Failed to delete meter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MeterTypes returns the meter type suggestion set. The store accepts any
// non-empty type; this list only feeds input pickers.
func (h *Handler) MeterTypes(w http.ResponseWriter, _ *http.Request) {
	types := domain.KnownMeterTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// CONTRACTOR HANDLERS
// =============================================================================

// ListContractors returns the contractor lookup set.
func (h *Handler) ListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := h.Store.ListContractors(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list contractors", err)
		return
	}

	dtos := make([]ContractorDTO, len(contractors))
	for i, c := range contractors {
		dtos[i] = toContractorDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContractor registers a contractor; the store assigns the id.
func (h *Handler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var req CreateContractorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Contractor name is required", nil)
		return
	}

	c, err := h.Store.CreateContractor(r.Context(), domain.Contractor{
		Name:      req.Name,
		Specialty: req.Specialty,
		Contact:   req.Contact,
	})
	if err != nil {
		h.writeDomainError(w, r, "Failed to create contractor", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractorDTO(c))
}

// GetTariffs returns the fixed tariff catalog.
func (h *Handler) GetTariffs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toTariffDTOs(billing.Catalog()))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetDebtors returns the debtor ranking, top-N by balance descending.
func (h *Handler) GetDebtors(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	entries, err := h.Reports.TopDebtors(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to rank debtors", err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtorDTOs(entries))
}

// GetTicketSummary returns ticket counts by status and contractor.
func (h *Handler) GetTicketSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.TicketSummary(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to summarize tickets", err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketSummaryDTO(summary))
}

// GetMeterSummary returns meter counts by type.
func (h *Handler) GetMeterSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.MeterSummary(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to summarize meters", err)
		return
	}

	byType := make(map[string]int, len(summary))
	for t, n := range summary {
		byType[string(t)] = n
	}
	writeJSON(w, http.StatusOK, MeterSummaryDTO{ByType: byType})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseReading(dateStr, valueStr string) (domain.Reading, error) {
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return domain.Reading{}, err
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return domain.Reading{}, &readingValueError{raw: valueStr}
	}
	return domain.Reading{Date: date, Value: value}, nil
}

type readingValueError struct{ raw string }

func (e *readingValueError) Error() string {
	return "reading value " + strconv.Quote(e.raw) + " is not a number"
}

func (e *readingValueError) Unwrap() error { return domain.ErrInvalidInput }

// writeDomainError maps domain errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateKey):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTicketClosed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidContractor),
		errors.Is(err, domain.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	writeError(w, status, message, err)
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

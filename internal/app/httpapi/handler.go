// Package httpapi exposes the application services over a REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	app "github.com/mctcapital/invest_layer/internal/app"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/metrics"
	accountssvc "github.com/mctcapital/invest_layer/internal/app/services/accounts"
	catalogsvc "github.com/mctcapital/invest_layer/internal/app/services/catalog"
	investmentssvc "github.com/mctcapital/invest_layer/internal/app/services/investments"
	ledgersvc "github.com/mctcapital/invest_layer/internal/app/services/ledger"
	transferssvc "github.com/mctcapital/invest_layer/internal/app/services/transfers"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/accounts", h.createAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", h.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", h.getAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/active", h.setAccountActive).Methods(http.MethodPut)
	r.HandleFunc("/accounts/{id}/balance", h.adjustBalance).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/stats", h.accountStats).Methods(http.MethodGet)

	r.HandleFunc("/packages", h.createPackage).Methods(http.MethodPost)
	r.HandleFunc("/packages", h.listPackages).Methods(http.MethodGet)
	r.HandleFunc("/packages/{id}", h.getPackage).Methods(http.MethodGet)
	r.HandleFunc("/packages/{id}", h.updatePackage).Methods(http.MethodPut)
	r.HandleFunc("/packages/{id}", h.deletePackage).Methods(http.MethodDelete)
	r.HandleFunc("/packages/{id}/active", h.setPackageActive).Methods(http.MethodPut)

	r.HandleFunc("/investments", h.createInvestment).Methods(http.MethodPost)
	r.HandleFunc("/investments", h.listInvestments).Methods(http.MethodGet)
	r.HandleFunc("/investments/{id}", h.getInvestment).Methods(http.MethodGet)
	r.HandleFunc("/investments/{id}/approve", h.approveInvestment).Methods(http.MethodPost)
	r.HandleFunc("/investments/{id}/cancel", h.cancelInvestment).Methods(http.MethodPost)

	r.HandleFunc("/ledger/deposits", h.submitDeposit).Methods(http.MethodPost)
	r.HandleFunc("/ledger/withdrawals", h.submitWithdrawal).Methods(http.MethodPost)
	r.HandleFunc("/ledger/entries", h.listEntries).Methods(http.MethodGet)
	r.HandleFunc("/ledger/entries/{id}", h.getEntry).Methods(http.MethodGet)
	r.HandleFunc("/ledger/entries/{id}/process", h.processEntry).Methods(http.MethodPost)

	r.HandleFunc("/transfers", h.transfer).Methods(http.MethodPost)
	r.HandleFunc("/transfers/lookup", h.lookupWallet).Methods(http.MethodGet)

	r.HandleFunc("/admin/dashboard", h.dashboard).Methods(http.MethodGet)
	r.HandleFunc("/admin/accrual/run", h.runAccrual).Methods(http.MethodPost)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- accounts ---------------------------------------------------------------

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, err := h.app.Accounts.Create(r.Context(), payload.Email, payload.Name)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	filter := storage.AccountFilter{Search: r.URL.Query().Get("search")}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	accts, err := h.app.Accounts.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, accts)
}

func (h *handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.app.Accounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) setAccountActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, err := h.app.Accounts.SetActive(r.Context(), mux.Vars(r)["id"], payload.Active)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) adjustBalance(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount  decimal.Decimal `json:"amount"`
		AdminID string          `json:"admin_id"`
		Reason  string          `json:"reason"`
		Silent  bool            `json:"silent"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, err := h.app.Accounts.AdjustBalance(r.Context(), mux.Vars(r)["id"], payload.Amount, payload.AdminID, payload.Reason, payload.Silent)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) accountStats(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	invStats, err := h.app.Investments.Stats(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	entryStats, err := h.app.Ledger.Stats(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"investments": invStats,
		"ledger":      entryStats,
	})
}

// --- packages ---------------------------------------------------------------

func (h *handler) createPackage(w http.ResponseWriter, r *http.Request) {
	var pkg catalog.Package
	if err := decodeJSON(r.Body, &pkg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.Create(r.Context(), pkg)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listPackages(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"
	pkgs, err := h.app.Catalog.List(r.Context(), onlyActive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (h *handler) getPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.app.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (h *handler) updatePackage(w http.ResponseWriter, r *http.Request) {
	var pkg catalog.Package
	if err := decodeJSON(r.Body, &pkg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pkg.ID = mux.Vars(r)["id"]
	updated, err := h.app.Catalog.Update(r.Context(), pkg)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deletePackage(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setPackageActive(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Active bool `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pkg, err := h.app.Catalog.SetActive(r.Context(), mux.Vars(r)["id"], payload.Active)
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// --- investments ------------------------------------------------------------

func (h *handler) createInvestment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccountID string          `json:"account_id"`
		PackageID string          `json:"package_id"`
		Amount    decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := h.app.Investments.Create(r.Context(), payload.AccountID, payload.PackageID, payload.Amount)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *handler) listInvestments(w http.ResponseWriter, r *http.Request) {
	filter := storage.InvestmentFilter{
		AccountID: r.URL.Query().Get("account_id"),
		Status:    investment.Status(r.URL.Query().Get("status")),
	}
	invs, err := h.app.Investments.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (h *handler) getInvestment(w http.ResponseWriter, r *http.Request) {
	inv, err := h.app.Investments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *handler) approveInvestment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AdminID string `json:"admin_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := h.app.Investments.Approve(r.Context(), mux.Vars(r)["id"], payload.AdminID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *handler) cancelInvestment(w http.ResponseWriter, r *http.Request) {
	inv, err := h.app.Investments.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// --- ledger -----------------------------------------------------------------

func (h *handler) submitDeposit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccountID     string          `json:"account_id"`
		Amount        decimal.Decimal `json:"amount"`
		Method        ledger.Method   `json:"method"`
		WalletAddress string          `json:"wallet_address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := h.app.Ledger.SubmitDeposit(r.Context(), payload.AccountID, payload.Amount, payload.Method, payload.WalletAddress)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *handler) submitWithdrawal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AccountID     string          `json:"account_id"`
		Amount        decimal.Decimal `json:"amount"`
		Method        ledger.Method   `json:"method"`
		WalletAddress string          `json:"wallet_address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := h.app.Ledger.SubmitWithdrawal(r.Context(), payload.AccountID, payload.Amount, payload.Method, payload.WalletAddress)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *handler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter := storage.EntryFilter{
		AccountID: r.URL.Query().Get("account_id"),
		Type:      ledger.Type(r.URL.Query().Get("type")),
		Status:    ledger.Status(r.URL.Query().Get("status")),
	}
	entries, err := h.app.Ledger.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handler) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.app.Ledger.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err, http.StatusInternalServerError), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *handler) processEntry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Decision ledger.Status `json:"decision"`
		AdminID  string        `json:"admin_id"`
		Notes    string        `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := h.app.Ledger.Process(r.Context(), mux.Vars(r)["id"], payload.Decision, payload.AdminID, payload.Notes)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// --- transfers --------------------------------------------------------------

func (h *handler) transfer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SenderID string          `json:"sender_id"`
		WalletID string          `json:"wallet_id"`
		Amount   decimal.Decimal `json:"amount"`
		Note     string          `json:"note"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.app.Transfers.Transfer(r.Context(), payload.SenderID, payload.WalletID, payload.Amount, payload.Note)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) lookupWallet(w http.ResponseWriter, r *http.Request) {
	senderID := r.URL.Query().Get("sender_id")
	walletID := r.URL.Query().Get("wallet_id")
	acct, err := h.app.Transfers.Lookup(r.Context(), senderID, walletID)
	if err != nil {
		writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"wallet_id": acct.WalletID,
		"name":      acct.Name,
	})
}

// --- admin ------------------------------------------------------------------

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Ledger.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) runAccrual(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Investments.RunAccrualPass(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- helpers ----------------------------------------------------------------

func decodeJSON(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusFor maps storage sentinels onto HTTP status codes, falling back to
// the caller's default.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, storage.ErrVersionConflict),
		errors.Is(err, storage.ErrAlreadyProcessed),
		errors.Is(err, storage.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transferssvc.ErrSelfTransfer),
		errors.Is(err, transferssvc.ErrInvalidAmount),
		errors.Is(err, transferssvc.ErrAccountInactive),
		errors.Is(err, ledgersvc.ErrInvalidAmount),
		errors.Is(err, ledgersvc.ErrAccountInactive),
		errors.Is(err, ledgersvc.ErrInvalidDecision),
		errors.Is(err, accountssvc.ErrInvalidAdjustment),
		errors.Is(err, catalogsvc.ErrInvalidPackage),
		errors.Is(err, investmentssvc.ErrAmountOutOfRange),
		errors.Is(err, investmentssvc.ErrPackageInactive),
		errors.Is(err, investmentssvc.ErrAccountInactive),
		errors.Is(err, investmentssvc.ErrInvalidTransition):
		return http.StatusBadRequest
	}
	return fallback
}

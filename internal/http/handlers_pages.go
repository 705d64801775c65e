package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/present"
)

type page struct {
	Title string
	User  present.User
}

// currentUser provisions the caller on first page visit.
func (s *Server) currentUser(ctx context.Context) (core.User, error) {
	return s.ledger.ProvisionUser(ctx, s.who)
}

func (s *Server) dashboard(ctx context.Context, user core.User) (core.Dashboard, error) {
	load := func(ctx context.Context) (core.Dashboard, error) {
		return s.ledger.GetDashboard(ctx, s.who)
	}
	if s.dashboards == nil {
		return load(ctx)
	}
	return s.dashboards.GetOrLoad(ctx, core.DashboardView(user.ID), load)
}

func (s *Server) accountDetail(ctx context.Context, user core.User, accountID string) (*core.AccountDetail, error) {
	load := func(ctx context.Context) (*core.AccountDetail, error) {
		return s.ledger.GetAccountWithTransactions(ctx, s.who, accountID)
	}
	if s.details == nil {
		return load(ctx)
	}
	return s.details.GetOrLoad(ctx, core.AccountView(user.ID, accountID), load)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
	}
}

// renderError shows a full error page, or a fragment for htmx partials.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := publicMessage(status, err)
	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Page failed", log.FieldError, err)
	}
	if errors.Is(err, core.ErrUnauthorized) {
		msg = "Sign in to see your accounts."
	}
	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	s.render(w, r, status, "error.html", struct {
		page
		Status  int
		Message string
	}{page: page{Title: http.StatusText(status)}, Status: status, Message: msg})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	dash, err := s.dashboard(r.Context(), user)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", struct {
		page
		Dashboard present.Dashboard
	}{
		page:      page{Title: "Dashboard", User: present.FromUser(user)},
		Dashboard: present.FromDashboard(dash),
	})
}

// handleAccountPage renders the account header. The transaction table is
// fetched by the page itself from handleAccountTransactions.
func (s *Server) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	detail, err := s.accountDetail(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if detail.IsEmpty() {
		s.renderError(w, r, core.ErrNotFound)
		return
	}
	p := present.FromDetail(detail)
	s.render(w, r, http.StatusOK, "account.html", struct {
		page
		Account present.Account
	}{
		page:    page{Title: p.Account.Name, User: present.FromUser(user)},
		Account: p.Account,
	})
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	detail, err := s.accountDetail(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if detail.IsEmpty() {
		NotFoundError("Account not found").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "account_transactions.html", present.FromDetail(detail))
}

type transactionForm struct {
	page
	Editing           bool
	Transaction       present.Transaction
	Accounts          []present.Account
	IncomeCategories  []core.Category
	ExpenseCategories []core.Category
	Intervals         []core.RecurringInterval
}

// handleTransactionForm serves the create form, prefilled from an owned
// transaction when ?edit= names one.
func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.currentUser(ctx)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	accounts, err := s.ledger.ListAccounts(ctx, s.who)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	form := transactionForm{
		page:              page{Title: "Add Transaction", User: present.FromUser(user)},
		Accounts:          present.Accounts(accounts),
		IncomeCategories:  core.CategoriesOf(core.Income),
		ExpenseCategories: core.CategoriesOf(core.Expense),
		Intervals:         []core.RecurringInterval{core.Daily, core.Weekly, core.Monthly, core.Yearly},
		Transaction: present.Transaction{
			Type:      string(core.Expense),
			InputDate: time.Now().UTC().Format(present.InputDateLayout),
			AccountID: r.URL.Query().Get("accountId"),
		},
	}
	if form.Transaction.AccountID == "" {
		for _, a := range accounts {
			if a.IsDefault {
				form.Transaction.AccountID = a.ID
			}
		}
	}

	if editID := r.URL.Query().Get("edit"); editID != "" {
		tx, err := s.ledger.GetTransaction(ctx, s.who, editID)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		if tx == nil {
			s.renderError(w, r, core.ErrNotFound)
			return
		}
		form.Editing = true
		form.Title = "Edit Transaction"
		form.Transaction = present.FromTransaction(*tx)
	}

	s.render(w, r, http.StatusOK, "transaction_form.html", form)
}

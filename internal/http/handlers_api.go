package http

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"spendwise/internal/core"
	"spendwise/internal/present"
)

// authorize answers 401 when the caller has no identity, so unauthenticated
// requests are rejected before their body is looked at.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if _, err := s.who.Resolve(r.Context()); err != nil {
		writeError(w, r, core.ErrUnauthorized)
		return false
	}
	return true
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return p, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := s.ledger.ProvisionUser(r.Context(), s.who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, present.FromUser(user))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context(), s.who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, present.Accounts(accounts))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	in, err := ParseAccountInput(p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.ledger.CreateAccount(r.Context(), s.who, in)
	if b := writeResult(w, r, res, http.StatusCreated, "Account created", func(a core.Account) any {
		return present.FromAccount(a)
	}); b != nil {
		b.TriggerFormReset().Write(w)
	}
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, err := s.ledger.GetAccountWithTransactions(r.Context(), s.who, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if detail.IsEmpty() {
		writeError(w, r, fmt.Errorf("account %w", core.ErrNotFound))
		return
	}
	writeData(w, http.StatusOK, present.FromDetail(detail))
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res := s.ledger.UpdateDefaultAccount(r.Context(), s.who, id)
	if b := writeResult(w, r, res, http.StatusOK, "Default account updated", func(a core.Account) any {
		return present.FromAccount(a)
	}); b != nil {
		b.Write(w)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	in, err := ParseTransactionInput(p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.ledger.CreateTransaction(r.Context(), s.who, in)
	s.writeTransaction(w, r, res, http.StatusCreated, "Transaction created")
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.GetTransaction(r.Context(), s.who, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tx == nil {
		writeError(w, r, fmt.Errorf("transaction %w", core.ErrNotFound))
		return
	}
	writeData(w, http.StatusOK, present.FromTransaction(*tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	in, err := ParseTransactionInput(p)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := s.ledger.UpdateTransaction(r.Context(), s.who, mux.Vars(r)["id"], in)
	s.writeTransaction(w, r, res, http.StatusOK, "Transaction updated")
}

// writeTransaction sends htmx callers back to the account page.
func (s *Server) writeTransaction(w http.ResponseWriter, r *http.Request, res core.Result[core.Transaction], status int, message string) {
	b := writeResult(w, r, res, status, message, func(t core.Transaction) any {
		return present.FromTransaction(t)
	})
	if b == nil {
		return
	}
	if isHTMX(r) {
		b.Redirect("/account/" + res.Data.AccountID)
	}
	b.Write(w)
}

type deleteSummary struct {
	Requested int `json:"requested"`
	Deleted   int `json:"deleted"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}

	res := s.ledger.BulkDeleteTransactions(r.Context(), s.who, p.Values("ids"))
	message := ""
	if res.Success {
		message = fmt.Sprintf("Deleted %d transaction(s)", res.Data.Deleted)
	}
	if b := writeResult(w, r, res, http.StatusOK, message, func(d core.DeleteSummary) any {
		return deleteSummary{Requested: d.Requested, Deleted: d.Deleted}
	}); b != nil {
		b.Write(w)
	}
}

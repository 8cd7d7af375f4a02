package http

import (
	"context"
	"net/http"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the backend answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpList, err)
		return
	}
	if expenses == nil {
		expenses = []core.ExpenseRecord{}
	}
	writeJSON(w, r, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	rec, err := s.service.CreateFromInput(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	w.Header().Set("Location", "/expenses/"+rec.ID)
	writeJSON(w, r, http.StatusCreated, rec)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap.Summary)
}

func (s *Server) handlePayees(w http.ResponseWriter, r *http.Request) {
	payees, err := s.service.Payees(r.Context())
	if err != nil {
		writeServiceError(w, r, "payees", err)
		return
	}
	if payees == nil {
		payees = []string{}
	}
	writeJSON(w, r, http.StatusOK, payees)
}

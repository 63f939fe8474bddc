// internal/infra/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"net/http"

	"grant_portal/internal/app"
	"grant_portal/internal/domain/cycle"
	idb "grant_portal/internal/infra/database"
)

// Cookie names for the client-side recovery hints. They survive the redirect
// round-trip through the payment provider and are advisory only.
const (
	hintApplicationCookie = "gp_application_hint"
	hintPlanCookie        = "gp_plan_hint"
)

const supportMessage = "Your payment went through, but we could not finish recording your application. Please contact support so we can fix this for you."

// handlePaymentConfirm consumes the payment provider's redirect and runs
// reconciliation.
func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req := app.ReconcileRequest{
		TxnID:          r.URL.Query().Get("session_id"),
		RedirectStatus: r.URL.Query().Get("redirect_status"),
		User:           user,
	}
	if c, err := r.Cookie(hintApplicationCookie); err == nil {
		req.ApplicationIDHint = c.Value
	}
	if c, err := r.Cookie(hintPlanCookie); err == nil {
		req.PlanTypeHint = c.Value
	}

	result, err := s.recon.Reconcile(r.Context(), req)
	if err != nil {
		switch err {
		case app.ErrInvalidConfirmation:
			writeError(w, http.StatusBadRequest, "This confirmation link is invalid. Please return to the portal.")
		case app.ErrPaymentNotCompleted:
			writeError(w, http.StatusBadRequest, "Your payment was not completed. No application has been submitted.")
		case app.ErrNoCycleFound, app.ErrApplicationUnrecoverable, app.ErrPromotionFailed:
			writeError(w, http.StatusInternalServerError, supportMessage)
		default:
			s.logger.Errorf("Unexpected reconciliation error: %v", err)
			writeError(w, http.StatusInternalServerError, supportMessage)
		}
		return
	}

	if result.ClearHints {
		clearCookie(w, hintApplicationCookie)
		clearCookie(w, hintPlanCookie)
	}

	payload := map[string]any{
		"status": "submitted",
	}
	if result.AlreadyDone {
		payload["status"] = "already_done"
	}
	if result.Application != nil {
		payload["application_id"] = result.Application.ID
	}
	if result.Cycle != nil {
		phase, description := cycle.ComputePhase(result.Cycle, timeNow(), s.refZone)
		payload["cycle"] = map[string]any{
			"id":          result.Cycle.ID,
			"name":        result.Cycle.Name,
			"phase":       phase,
			"description": description,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

type claimRequest struct {
	Token string `json:"token"`
}

// handleInviteClaim attempts to claim a gift or invitation for the
// authenticated user.
func (s *Server) handleInviteClaim(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body claimRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeError(w, http.StatusBadRequest, "a claim token is required")
		return
	}

	result, err := s.claims.Claim(r.Context(), user, body.Token)
	if err != nil {
		if err == app.ErrInviteNotFound {
			writeError(w, http.StatusNotFound, "This invitation does not exist.")
			return
		}
		s.logger.Errorf("Claim of token failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong claiming this invitation. Please try again.")
		return
	}

	// Terminal and mismatch outcomes are informational, not errors: the
	// client shows a message and a next step.
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":   result.Outcome,
		"plan_type": result.Import.PlanType,
	})
}

// handleCurrentCycle is the public phase readout.
func (s *Server) handleCurrentCycle(w http.ResponseWriter, r *http.Request) {
	c, err := s.cycleRepo.MostRecentOpen(r.Context())
	if err == idb.ErrCycleNotFound {
		c, err = s.cycleRepo.MostRecent(r.Context())
	}
	if err != nil {
		if err == idb.ErrCycleNotFound {
			writeError(w, http.StatusNotFound, "no grant cycle configured")
			return
		}
		s.logger.Errorf("Failed to resolve current cycle: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load the current cycle")
		return
	}

	phase, description := cycle.ComputePhase(c, timeNow(), s.refZone)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"phase":       phase,
		"description": description,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}

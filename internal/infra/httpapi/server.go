// internal/infra/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"grant_portal/internal/app"
	"grant_portal/internal/domain/cycle"
	"grant_portal/internal/domain/identity"

	"github.com/sirupsen/logrus"
)

// Server is the thin HTTP trigger surface over the lifecycle engine. It owns
// no business rules: it authenticates, decodes parameters, picks cookies
// apart and maps outcomes to status codes.
type Server struct {
	recon     *app.ReconciliationService
	claims    *app.ClaimService
	admin     *app.AdminService
	cycleRepo cycle.Repository
	verifier  identity.Verifier
	logger    *logrus.Logger
	refZone   *time.Location
	httpSrv   *http.Server
}

func NewServer(
	addr string,
	recon *app.ReconciliationService,
	claims *app.ClaimService,
	admin *app.AdminService,
	cycleRepo cycle.Repository,
	verifier identity.Verifier,
	logger *logrus.Logger,
	refZone *time.Location,
) *Server {
	s := &Server{
		recon:     recon,
		claims:    claims,
		admin:     admin,
		cycleRepo: cycleRepo,
		verifier:  verifier,
		logger:    logger,
		refZone:   refZone,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /payments/confirm", s.handlePaymentConfirm)
	mux.HandleFunc("POST /invites/claim", s.handleInviteClaim)
	mux.HandleFunc("GET /cycles/current", s.handleCurrentCycle)
	mux.HandleFunc("POST /admin/cycles", s.handleAdminCreateCycle)
	mux.HandleFunc("PUT /admin/cycles/{id}", s.handleAdminUpdateCycle)
	mux.HandleFunc("PUT /admin/cycles/{id}/manual-status", s.handleAdminSetManualStatus)
	mux.HandleFunc("PUT /admin/sequences/{id}/active", s.handleAdminSetSequenceActive)
	mux.HandleFunc("GET /admin/imports", s.handleAdminListImports)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("HTTP API listening on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

var errUnauthenticated = fmt.Errorf("request is not authenticated")

// timeNow is a seam for tests that pin the clock.
var timeNow = time.Now

// principal authenticates the request from its bearer token.
func (s *Server) principal(r *http.Request) (*identity.Principal, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, errUnauthenticated
	}
	return s.verifier.Verify(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

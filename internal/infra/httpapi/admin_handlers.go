// internal/infra/httpapi/admin_handlers.go
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"grant_portal/internal/app"
	"grant_portal/internal/domain/cycle"
	idb "grant_portal/internal/infra/database"
)

// cycleDate is the wire format for the civil-date fields of a cycle.
const cycleDate = "2006-01-02"

type cyclePayload struct {
	Name                 string `json:"name"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	AnnounceBy           string `json:"announce_by"`
	IsOpenForSubmissions bool   `json:"is_open_for_submissions"`
}

func (p *cyclePayload) toCycle() (*cycle.Cycle, error) {
	c := &cycle.Cycle{Name: p.Name, IsOpenForSubmissions: p.IsOpenForSubmissions}
	var err error
	if c.StartDate, err = time.Parse(cycleDate, p.StartDate); err != nil {
		return nil, err
	}
	if c.EndDate, err = time.Parse(cycleDate, p.EndDate); err != nil {
		return nil, err
	}
	if c.AnnounceBy, err = time.Parse(cycleDate, p.AnnounceBy); err != nil {
		return nil, err
	}
	return c, nil
}

func cycleResponse(c *cycle.Cycle) map[string]any {
	resp := map[string]any{
		"id":                      c.ID,
		"name":                    c.Name,
		"start_date":              c.StartDate.Format(cycleDate),
		"end_date":                c.EndDate.Format(cycleDate),
		"announce_by":             c.AnnounceBy.Format(cycleDate),
		"is_open_for_submissions": c.IsOpenForSubmissions,
	}
	if c.ManualStatus.Valid {
		resp["manual_status"] = c.ManualStatus.String
	}
	return resp
}

// writeAdminError maps admin service errors onto status codes.
func (s *Server) writeAdminError(w http.ResponseWriter, err error) {
	switch err {
	case app.ErrAdminNotAuthorized:
		writeError(w, http.StatusForbidden, "admin access required")
	case app.ErrInvalidCycleDates:
		writeError(w, http.StatusBadRequest, "cycle dates must satisfy start <= end <= announce-by")
	case app.ErrInvalidManualStatus:
		writeError(w, http.StatusBadRequest, "manual status must be reviewing, completed, closed or empty")
	case idb.ErrCycleNotFound:
		writeError(w, http.StatusNotFound, "cycle not found")
	case idb.ErrSequenceNotFound:
		writeError(w, http.StatusNotFound, "sequence not found")
	default:
		s.logger.Errorf("Admin operation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "admin operation failed")
	}
}

func (s *Server) handleAdminCreateCycle(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload cyclePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := payload.toCycle()
	if err != nil {
		writeError(w, http.StatusBadRequest, "dates must be formatted YYYY-MM-DD")
		return
	}

	created, err := s.admin.CreateCycle(r.Context(), user, c)
	if err != nil {
		s.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycleResponse(created))
}

func (s *Server) handleAdminUpdateCycle(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cycle id")
		return
	}

	var payload cyclePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := payload.toCycle()
	if err != nil {
		writeError(w, http.StatusBadRequest, "dates must be formatted YYYY-MM-DD")
		return
	}
	c.ID = id

	updated, err := s.admin.UpdateCycle(r.Context(), user, c)
	if err != nil {
		s.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycleResponse(updated))
}

func (s *Server) handleAdminSetManualStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cycle id")
		return
	}

	var body struct {
		ManualStatus string `json:"manual_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.admin.SetManualStatus(r.Context(), user, id, body.ManualStatus)
	if err != nil {
		s.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycleResponse(updated))
}

func (s *Server) handleAdminSetSequenceActive(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sequence id")
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	seq, err := s.admin.SetSequenceActive(r.Context(), user, id, body.Active)
	if err != nil {
		s.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        seq.ID,
		"name":      seq.Name,
		"is_active": seq.IsActive,
	})
}

func (s *Server) handleAdminListImports(w http.ResponseWriter, r *http.Request) {
	user, err := s.principal(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	imports, err := s.admin.ListPendingImports(r.Context(), user)
	if err != nil {
		s.writeAdminError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(imports))
	for _, imp := range imports {
		out = append(out, map[string]any{
			"id":         imp.ID,
			"email":      imp.Email,
			"plan_type":  imp.PlanType,
			"status":     imp.Status,
			"expires_at": imp.ExpiresAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": out})
}

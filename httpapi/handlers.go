package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"hronboard/auth"
	"hronboard/escalation"
	"hronboard/offer"
	"hronboard/reminder"
)

type createOfferRequest struct {
	EmployeeName    string          `json:"employee_name"`
	Email           string          `json:"email"`
	ChatID          string          `json:"chat_id"`
	MessengerID     string          `json:"messenger_id"`
	Position        string          `json:"position"`
	Department      string          `json:"department"`
	Jurisdiction    string          `json:"jurisdiction"`
	Salary          decimal.Decimal `json:"salary"`
	StartDate       string          `json:"start_date"`
	ProbationMonths int             `json:"probation_months"`
	NoticeWeeks     int             `json:"notice_weeks"`
	AnnualLeaveDays int             `json:"annual_leave_days"`
}

type offerResponse struct {
	OfferID         string `json:"offer_id"`
	EmployeeID      string `json:"employee_id"`
	Status          string `json:"status"`
	Jurisdiction    string `json:"jurisdiction"`
	Salary          string `json:"salary"`
	Position        string `json:"position"`
	OfferSentAt     string `json:"offer_sent_at"`
	OfferExpiresAt  string `json:"offer_expires_at"`
	DaysUntilExpiry int    `json:"days_until_expiry,omitempty"`
}

func toOfferResponse(rec offer.Record) offerResponse {
	return offerResponse{
		OfferID:        rec.ID,
		EmployeeID:     rec.EmployeeID,
		Status:         string(rec.Status),
		Jurisdiction:   rec.Jurisdiction,
		Salary:         rec.Salary.StringFixed(2),
		Position:       rec.Position,
		OfferSentAt:    rec.OfferSentAt.UTC().Format(time.RFC3339),
		OfferExpiresAt: rec.OfferExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "start_date must be YYYY-MM-DD")
		return
	}

	rec, err := s.offers.Create(r.Context(), offer.CreateParams{
		Employee: offer.EmployeeData{
			FullName:    req.EmployeeName,
			Email:       req.Email,
			ChatID:      req.ChatID,
			MessengerID: req.MessengerID,
		},
		Details: offer.OfferDetails{
			Jurisdiction:    req.Jurisdiction,
			Salary:          req.Salary,
			Position:        req.Position,
			Department:      req.Department,
			StartDate:       startDate,
			ProbationMonths: req.ProbationMonths,
			NoticeWeeks:     req.NoticeWeeks,
			AnnualLeaveDays: req.AnnualLeaveDays,
		},
	})
	if err != nil {
		if errors.Is(err, offer.ErrDuplicateOffer) {
			writeError(w, http.StatusConflict, "duplicate_offer", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toOfferResponse(rec))
}

type respondRequest struct {
	Response string  `json:"response"`
	Reason   *string `json:"reason,omitempty"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.offers.Respond(r.Context(), offer.RespondParams{
		OfferID:  r.PathValue("offer_id"),
		Response: req.Response,
		Reason:   req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, offer.ErrInvalidResponse):
			writeError(w, http.StatusBadRequest, "invalid_response", err.Error())
		case errors.Is(err, offer.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, offer.ErrOfferExpired):
			writeError(w, http.StatusConflict, "offer_expired", err.Error())
		case errors.Is(err, offer.ErrAlreadyResponded):
			writeError(w, http.StatusConflict, "already_responded", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	nextSteps := "Thank you for your response. We wish you all the best."
	if rec.Status == offer.StatusOfferAccepted {
		nextSteps = "Welcome aboard. HR will activate your onboarding and send your document and training tasks shortly."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"offer_id":   rec.ID,
		"status":     string(rec.Status),
		"next_steps": nextSteps,
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	result, err := s.offers.AdvanceToActive(r.Context(), r.PathValue("offer_id"))
	if err != nil {
		switch {
		case errors.Is(err, offer.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, offer.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	// An invalid verdict is a domain outcome, not a transport failure; the
	// call succeeded and reports the escalation.
	status := "activated"
	if !result.Activated {
		status = "escalated_to_hr"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"offer_id": result.Record.ID,
		"status":   status,
		"verdict": map[string]string{
			"overall":       string(result.Verdict.Overall),
			"policy":        string(result.Verdict.PolicyResult),
			"policy_reason": result.Verdict.PolicyReason,
			"salary":        string(result.Verdict.SalaryResult),
			"salary_reason": result.Verdict.SalaryReason,
		},
	})
}

type completeRequest struct {
	ChecklistPct int `json:"checklist_pct"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.offers.CompleteOnboarding(r.Context(), r.PathValue("offer_id"), req.ChecklistPct)
	if err != nil {
		switch {
		case errors.Is(err, offer.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, offer.ErrChecklistIncomplete):
			writeError(w, http.StatusConflict, "checklist_incomplete", err.Error())
		case errors.Is(err, offer.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(rec))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reader.Get(r.Context(), r.PathValue("offer_id"))
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toOfferResponse(rec))
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := s.trail.ListByOffer(r.Context(), r.PathValue("offer_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	type auditEntry struct {
		Kind      string          `json:"kind"`
		Payload   json.RawMessage `json:"payload"`
		CreatedAt string          `json:"created_at"`
	}
	out := make([]auditEntry, 0, len(events))
	for _, ev := range events {
		out = append(out, auditEntry{
			Kind:      ev.Kind,
			Payload:   json.RawMessage(ev.Payload),
			CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.offers.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	out := make([]offerResponse, 0, len(pending))
	for _, p := range pending {
		resp := toOfferResponse(p.Record)
		resp.DaysUntilExpiry = p.DaysUntilExpiry
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.offers.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	counts := make(map[string]int, len(stats))
	for st, n := range stats {
		counts[string(st)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

type sendReminderRequest struct {
	EmployeeID string `json:"employee_id"`
	Type       string `json:"type"`
	Channel    string `json:"channel,omitempty"`
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	var req sendReminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	typ, ok := reminder.ParseType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_type", "unknown reminder type")
		return
	}

	rec, err := s.reader.ActiveByEmployee(r.Context(), req.EmployeeID)
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "employee has no active offer")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	milestone, ok := milestoneFor(rec, typ)
	if !ok {
		writeError(w, http.StatusConflict, "nothing_due", "offer has no milestone for this reminder type")
		return
	}

	task, err := s.reminders.Trigger(r.Context(), reminder.Candidate{
		OfferID:     rec.ID,
		EmployeeID:  rec.EmployeeID,
		Type:        typ,
		MilestoneAt: milestone,
	}, req.Channel)
	if err != nil {
		if errors.Is(err, reminder.ErrNothingDue) {
			writeError(w, http.StatusConflict, "nothing_due", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": task.ID,
		"type":    string(task.Type),
		"channel": task.Channel,
		"level":   task.EscalationLevel,
	})
}

func milestoneFor(rec offer.Record, typ reminder.Type) (time.Time, bool) {
	switch typ {
	case reminder.TypeOfferPending:
		if rec.Status != offer.StatusOfferPending {
			return time.Time{}, false
		}
		return rec.OfferSentAt, true
	case reminder.TypeDocumentOverdue:
		if rec.DocumentsAssignedAt == nil || rec.ChecklistDone {
			return time.Time{}, false
		}
		return *rec.DocumentsAssignedAt, true
	case reminder.TypeTrainingIncomplete:
		if rec.TrainingAssignedAt == nil || rec.ChecklistDone {
			return time.Time{}, false
		}
		return *rec.TrainingAssignedAt, true
	}
	return time.Time{}, false
}

func (s *Server) handleEscalations(w http.ResponseWriter, r *http.Request) {
	status := escalation.Status(r.URL.Query().Get("status"))
	list, err := s.escalations.List(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	type escalationEntry struct {
		ID        string `json:"id"`
		OfferID   string `json:"offer_id"`
		Reason    string `json:"reason"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]escalationEntry, 0, len(list))
	for _, e := range list {
		out = append(out, escalationEntry{
			ID:        e.ID,
			OfferID:   e.OfferID,
			Reason:    e.Reason,
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"escalations": out})
}

func (s *Server) handleResolveEscalation(w http.ResponseWriter, r *http.Request) {
	if role, ok := roleFrom(r.Context()); !ok || role != auth.RoleHRAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "resolving escalations requires hr_admin")
		return
	}

	rec, err := s.escalations.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, escalation.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, escalation.ErrBadStatus):
			writeError(w, http.StatusConflict, "already_resolved", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     rec.ID,
		"status": string(rec.Status),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authn.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, "weak_password", err.Error())
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "duplicate_email", err.Error())
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.authn.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token": result.Token,
		"role":  string(result.User.Role),
	})
}

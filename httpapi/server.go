// Package httpapi exposes the onboarding engine over HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"hronboard/audit"
	"hronboard/auth"
	"hronboard/escalation"
	"hronboard/offer"
	"hronboard/reminder"
	"hronboard/validation"
)

// OfferService is the lifecycle engine surface the handlers call.
type OfferService interface {
	Create(ctx context.Context, params offer.CreateParams) (offer.Record, error)
	Respond(ctx context.Context, params offer.RespondParams) (offer.Record, error)
	AdvanceToActive(ctx context.Context, offerID string) (offer.AdvanceResult, error)
	CompleteOnboarding(ctx context.Context, offerID string, checklistPct int) (offer.Record, error)
	ListPending(ctx context.Context) ([]offer.PendingOffer, error)
	Stats(ctx context.Context) (map[offer.Status]int, error)
}

// OfferReader fetches single records and their validation subjects.
type OfferReader interface {
	Get(ctx context.Context, id string) (offer.Record, error)
	ActiveByEmployee(ctx context.Context, employeeID string) (offer.Record, error)
	Subject(ctx context.Context, offerID string) (validation.Subject, error)
}

// ReminderTrigger sends one manual reminder outside the sweep cadence.
type ReminderTrigger interface {
	Trigger(ctx context.Context, c reminder.Candidate, channel string) (reminder.Task, error)
}

// EscalationService lists and resolves HR escalations.
type EscalationService interface {
	List(ctx context.Context, status escalation.Status) ([]escalation.Record, error)
	Resolve(ctx context.Context, id string) (escalation.Record, error)
}

// AuthService issues and verifies staff tokens.
type AuthService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
}

// AuditReader returns the immutable trail for one offer.
type AuditReader interface {
	ListByOffer(ctx context.Context, offerID string) ([]audit.Stored, error)
}

// Server wires the handlers onto a mux and carries their dependencies.
type Server struct {
	offers      OfferService
	reader      OfferReader
	reminders   ReminderTrigger
	escalations EscalationService
	authn       AuthService
	trail       AuditReader
	log         *slog.Logger
}

func NewServer(offers OfferService, reader OfferReader, reminders ReminderTrigger, escalations EscalationService, authn AuthService, trail AuditReader, log *slog.Logger) *Server {
	return &Server{
		offers:      offers,
		reader:      reader,
		reminders:   reminders,
		escalations: escalations,
		authn:       authn,
		trail:       trail,
		log:         log,
	}
}

// Handler builds the route table. Staff routes sit behind the bearer-token
// middleware; respond is open because the offer id itself is the candidate's
// capability.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/multiagent/onboarding/offer/{offer_id}/respond", s.handleRespond)

	mux.Handle("POST /api/multiagent/onboarding/offer", s.requireStaff(s.handleCreate))
	mux.Handle("POST /api/multiagent/onboarding/offer/{offer_id}/advance", s.requireStaff(s.handleAdvance))
	mux.Handle("POST /api/multiagent/onboarding/offer/{offer_id}/complete", s.requireStaff(s.handleComplete))
	mux.Handle("GET /api/multiagent/onboarding/offer/{offer_id}", s.requireStaff(s.handleGet))
	mux.Handle("GET /api/multiagent/onboarding/offer/{offer_id}/audit", s.requireStaff(s.handleAuditTrail))
	mux.Handle("GET /api/multiagent/onboarding/pending", s.requireStaff(s.handlePending))
	mux.Handle("GET /api/multiagent/onboarding/stats", s.requireStaff(s.handleStats))
	mux.Handle("POST /api/multiagent/onboarding/reminders/send", s.requireStaff(s.handleSendReminder))
	mux.Handle("GET /api/multiagent/onboarding/escalations", s.requireStaff(s.handleEscalations))
	mux.Handle("POST /api/multiagent/onboarding/escalations/{id}/resolve", s.requireStaff(s.handleResolveEscalation))

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]string{"error": errCode, "message": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	return true
}

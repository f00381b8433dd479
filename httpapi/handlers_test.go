package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hronboard/audit"
	"hronboard/auth"
	"hronboard/escalation"
	"hronboard/offer"
	"hronboard/reminder"
	"hronboard/validation"
)

const (
	staffToken = "staff-token"
	adminToken = "admin-token"
)

func newTestServer(offers *fakeOffers) *httptest.Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(offers, offers, &fakeReminders{}, &fakeEscalations{}, &fakeAuth{}, &fakeTrail{}, log)
	return httptest.NewServer(srv.Handler())
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestCreateOffer(t *testing.T) {
	offers := newFakeOffers()
	ts := newTestServer(offers)
	defer ts.Close()

	body := `{
		"employee_name": "Siti Rahman",
		"email": "siti@example.com",
		"position": "Engineer",
		"jurisdiction": "MY",
		"salary": "5000",
		"start_date": "2026-04-01"
	}`

	resp, decoded := doJSON(t, http.MethodPost, ts.URL+"/api/multiagent/onboarding/offer", staffToken, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", resp.StatusCode, decoded)
	}
	if decoded["status"] != "offer_pending" {
		t.Fatalf("unexpected status %v", decoded["status"])
	}
	if decoded["offer_id"] == "" {
		t.Fatal("missing offer_id")
	}
}

func TestCreateOffer_RequiresToken(t *testing.T) {
	ts := newTestServer(newFakeOffers())
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/multiagent/onboarding/offer", "", `{}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOffer_DuplicateMapsTo409(t *testing.T) {
	offers := newFakeOffers()
	offers.createErr = offer.ErrDuplicateOffer
	ts := newTestServer(offers)
	defer ts.Close()

	body := `{"employee_name": "A", "email": "a@b.c", "jurisdiction": "MY", "salary": "5000", "start_date": "2026-04-01"}`
	resp, decoded := doJSON(t, http.MethodPost, ts.URL+"/api/multiagent/onboarding/offer", staffToken, body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if decoded["error"] != "duplicate_offer" {
		t.Fatalf("unexpected error code %v", decoded["error"])
	}
}

func TestRespond_OpenEndpoint(t *testing.T) {
	offers := newFakeOffers()
	ts := newTestServer(offers)
	defer ts.Close()

	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/offer/offer-1/respond", "", `{"response": "accepted"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 without a token, got %d", resp.StatusCode)
	}
	if decoded["status"] != "offer_accepted" {
		t.Fatalf("unexpected status %v", decoded["status"])
	}
	if decoded["next_steps"] == "" {
		t.Fatal("missing next_steps")
	}
}

func TestRespond_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"expired", offer.ErrOfferExpired, http.StatusConflict, "offer_expired"},
		{"already responded", offer.ErrAlreadyResponded, http.StatusConflict, "already_responded"},
		{"not found", offer.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid value", offer.ErrInvalidResponse, http.StatusBadRequest, "invalid_response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			offers := newFakeOffers()
			offers.respondErr = tc.err
			ts := newTestServer(offers)
			defer ts.Close()

			resp, decoded := doJSON(t, http.MethodPost,
				ts.URL+"/api/multiagent/onboarding/offer/offer-1/respond", "", `{"response": "accepted"}`)
			if resp.StatusCode != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, resp.StatusCode)
			}
			if decoded["error"] != tc.wantErr {
				t.Fatalf("expected error %q, got %v", tc.wantErr, decoded["error"])
			}
		})
	}
}

func TestAdvance_InvalidVerdictIs200WithStatus(t *testing.T) {
	offers := newFakeOffers()
	offers.advanceResult = offer.AdvanceResult{
		Record: offer.Record{ID: "offer-1", Status: offer.StatusOfferAccepted},
		Verdict: validation.Verdict{
			Overall:      validation.ResultInvalid,
			PolicyResult: validation.ResultInvalid,
			PolicyReason: "probation too long",
			SalaryResult: validation.ResultValid,
		},
		Activated: false,
	}
	ts := newTestServer(offers)
	defer ts.Close()

	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/offer/offer-1/advance", staffToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if decoded["status"] != "escalated_to_hr" {
		t.Fatalf("unexpected status %v", decoded["status"])
	}
	verdict := decoded["verdict"].(map[string]any)
	if verdict["policy_reason"] != "probation too long" {
		t.Fatalf("verdict reasons not surfaced: %v", verdict)
	}
}

func TestComplete_ChecklistGate(t *testing.T) {
	offers := newFakeOffers()
	offers.completeErr = offer.ErrChecklistIncomplete
	ts := newTestServer(offers)
	defer ts.Close()

	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/offer/offer-1/complete", staffToken, `{"checklist_pct": 70}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if decoded["error"] != "checklist_incomplete" {
		t.Fatalf("unexpected error %v", decoded["error"])
	}
}

func TestPendingAndStats(t *testing.T) {
	offers := newFakeOffers()
	offers.pending = []offer.PendingOffer{{
		Record:          offer.Record{ID: "offer-1", Status: offer.StatusOfferPending, Salary: decimal.NewFromInt(5000)},
		DaysUntilExpiry: 4,
	}}
	offers.stats = map[offer.Status]int{offer.StatusOfferPending: 1, offer.StatusExpired: 2}
	ts := newTestServer(offers)
	defer ts.Close()

	resp, decoded := doJSON(t, http.MethodGet, ts.URL+"/api/multiagent/onboarding/pending", staffToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending: expected 200, got %d", resp.StatusCode)
	}
	list := decoded["offers"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 pending offer, got %d", len(list))
	}
	entry := list[0].(map[string]any)
	if entry["days_until_expiry"] != float64(4) {
		t.Fatalf("missing countdown: %v", entry)
	}

	resp, decoded = doJSON(t, http.MethodGet, ts.URL+"/api/multiagent/onboarding/stats", staffToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.StatusCode)
	}
	counts := decoded["counts"].(map[string]any)
	if counts["expired"] != float64(2) {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestSendReminder_ByEmployeeID(t *testing.T) {
	offers := newFakeOffers()
	rec := offers.records["offer-1"]
	rec.OfferSentAt = time.Now().Add(-4 * 24 * time.Hour)
	offers.records["offer-1"] = rec
	ts := newTestServer(offers)
	defer ts.Close()

	body := `{"employee_id": "emp-1", "type": "offer_pending", "channel": "email"}`
	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/reminders/send", staffToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, decoded)
	}
	if decoded["task_id"] == "" {
		t.Fatal("missing task_id")
	}
	if decoded["level"] != float64(1) {
		t.Fatalf("unexpected level %v", decoded["level"])
	}
}

func TestSendReminder_NothingDue(t *testing.T) {
	offers := newFakeOffers()
	ts := newTestServer(offers)
	defer ts.Close()

	// The employee's offer was sent moments ago, so no escalation level is due.
	body := `{"employee_id": "emp-1", "type": "offer_pending"}`
	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/reminders/send", staffToken, body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %v", resp.StatusCode, decoded)
	}
	if decoded["error"] != "nothing_due" {
		t.Fatalf("unexpected error %v", decoded["error"])
	}
}

func TestSendReminder_UnknownEmployee(t *testing.T) {
	ts := newTestServer(newFakeOffers())
	defer ts.Close()

	body := `{"employee_id": "emp-missing", "type": "offer_pending"}`
	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/reminders/send", staffToken, body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %v", resp.StatusCode, decoded)
	}
	if decoded["error"] != "not_found" {
		t.Fatalf("unexpected error %v", decoded["error"])
	}
}

func TestResolveEscalation_RequiresAdmin(t *testing.T) {
	ts := newTestServer(newFakeOffers())
	defer ts.Close()

	resp, _ := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/escalations/esc-1/resolve", staffToken, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for hr_staff, got %d", resp.StatusCode)
	}

	resp, decoded := doJSON(t, http.MethodPost,
		ts.URL+"/api/multiagent/onboarding/escalations/esc-1/resolve", adminToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for hr_admin, got %d", resp.StatusCode)
	}
	if decoded["status"] != "resolved" {
		t.Fatalf("unexpected status %v", decoded["status"])
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(newFakeOffers())
	defer ts.Close()

	resp, decoded := doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "",
		`{"email": "x@y.z", "password": "wrong"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if decoded["error"] != "invalid_credentials" {
		t.Fatalf("unexpected error %v", decoded["error"])
	}
}

type fakeOffers struct {
	records       map[string]offer.Record
	pending       []offer.PendingOffer
	stats         map[offer.Status]int
	advanceResult offer.AdvanceResult
	createErr     error
	respondErr    error
	completeErr   error
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{
		records: map[string]offer.Record{
			"offer-1": {
				ID:             "offer-1",
				EmployeeID:     "emp-1",
				Status:         offer.StatusOfferPending,
				Jurisdiction:   "MY",
				Salary:         decimal.NewFromInt(5000),
				OfferSentAt:    time.Now().Add(-time.Minute),
				OfferExpiresAt: time.Now().Add(7 * 24 * time.Hour),
			},
		},
	}
}

func (f *fakeOffers) Create(ctx context.Context, params offer.CreateParams) (offer.Record, error) {
	if f.createErr != nil {
		return offer.Record{}, f.createErr
	}
	return offer.Record{
		ID:             "offer-new",
		EmployeeID:     "emp-new",
		Status:         offer.StatusOfferPending,
		Jurisdiction:   params.Details.Jurisdiction,
		Salary:         params.Details.Salary,
		Position:       params.Details.Position,
		OfferSentAt:    time.Now(),
		OfferExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}, nil
}

func (f *fakeOffers) Respond(ctx context.Context, params offer.RespondParams) (offer.Record, error) {
	if f.respondErr != nil {
		return offer.Record{}, f.respondErr
	}
	rec := f.records[params.OfferID]
	rec.Status = offer.StatusOfferAccepted
	return rec, nil
}

func (f *fakeOffers) AdvanceToActive(ctx context.Context, offerID string) (offer.AdvanceResult, error) {
	return f.advanceResult, nil
}

func (f *fakeOffers) CompleteOnboarding(ctx context.Context, offerID string, checklistPct int) (offer.Record, error) {
	if f.completeErr != nil {
		return offer.Record{}, f.completeErr
	}
	rec := f.records[offerID]
	rec.Status = offer.StatusOnboardingComplete
	return rec, nil
}

func (f *fakeOffers) ListPending(ctx context.Context) ([]offer.PendingOffer, error) {
	return f.pending, nil
}

func (f *fakeOffers) Stats(ctx context.Context) (map[offer.Status]int, error) {
	return f.stats, nil
}

func (f *fakeOffers) Get(ctx context.Context, id string) (offer.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return offer.Record{}, offer.ErrNotFound
	}
	return rec, nil
}

func (f *fakeOffers) ActiveByEmployee(ctx context.Context, employeeID string) (offer.Record, error) {
	for _, rec := range f.records {
		if rec.EmployeeID == employeeID && !offer.IsTerminal(rec.Status) {
			return rec, nil
		}
	}
	return offer.Record{}, offer.ErrNotFound
}

func (f *fakeOffers) Subject(ctx context.Context, offerID string) (validation.Subject, error) {
	return validation.Subject{OfferID: offerID}, nil
}

type fakeReminders struct{}

func (f *fakeReminders) Trigger(ctx context.Context, c reminder.Candidate, channel string) (reminder.Task, error) {
	if time.Since(c.MilestoneAt) < 3*24*time.Hour {
		return reminder.Task{}, reminder.ErrNothingDue
	}
	return reminder.Task{ID: "task-1", Type: c.Type, Channel: "email", EscalationLevel: 1}, nil
}

type fakeEscalations struct{}

func (f *fakeEscalations) List(ctx context.Context, status escalation.Status) ([]escalation.Record, error) {
	return nil, nil
}

func (f *fakeEscalations) Resolve(ctx context.Context, id string) (escalation.Record, error) {
	return escalation.Record{ID: id, Status: escalation.StatusResolved}, nil
}

type fakeAuth struct{}

func (f *fakeAuth) Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error) {
	return &auth.User{ID: "user-1", Email: req.Email, Role: auth.RoleHRStaff}, nil
}

func (f *fakeAuth) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error) {
	return auth.LoginResult{}, auth.ErrInvalidCredentials
}

func (f *fakeAuth) VerifyToken(token string) (string, auth.Role, error) {
	switch token {
	case staffToken:
		return "user-staff", auth.RoleHRStaff, nil
	case adminToken:
		return "user-admin", auth.RoleHRAdmin, nil
	}
	return "", "", errors.New("bad token")
}

type fakeTrail struct{}

func (f *fakeTrail) ListByOffer(ctx context.Context, offerID string) ([]audit.Stored, error) {
	return nil, nil
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/httpx"
	"github.com/calderhq/rosterd/internal/metrics"
	"github.com/calderhq/rosterd/internal/notify"
	"github.com/calderhq/rosterd/internal/schedule"
	"github.com/calderhq/rosterd/internal/token"
)

// fakeAttendance serves one session and records RSVP writes.
type fakeAttendance struct {
	session *schedule.Session
	writes  []rsvpWrite
	deletes []int64
}

type rsvpWrite struct {
	sessionID int64
	profileID int64
	status    schedule.RSVPStatus
	note      string
}

func (s *fakeAttendance) GetSession(_ context.Context, teamID, sessionID int64) (*schedule.Session, error) {
	if s.session != nil && s.session.TeamID == teamID && s.session.ID == sessionID {
		return s.session, nil
	}
	return nil, nil
}

func (s *fakeAttendance) ListRSVPs(_ context.Context, _, _ int64) ([]schedule.RSVP, error) {
	return nil, nil
}

func (s *fakeAttendance) UpsertRSVP(_ context.Context, sessionID, profileID int64, status schedule.RSVPStatus, note string) (bool, error) {
	s.writes = append(s.writes, rsvpWrite{sessionID, profileID, status, note})
	return true, nil
}

func (s *fakeAttendance) DeleteRSVP(_ context.Context, sessionID, profileID int64) error {
	s.deletes = append(s.deletes, profileID)
	return nil
}

type fakeDirectory struct{}

func (fakeDirectory) MemberEmails(_ context.Context, _ int64, _ *auth.Role) ([]string, error) {
	return nil, nil
}

type fakeAudit struct {
	actions []string
}

func (a *fakeAudit) Log(_ context.Context, _, _ int64, action, _ string, _ int64, _ map[string]any) {
	a.actions = append(a.actions, action)
}

// rsvpFixture drives the RSVP handler directly with an authenticated
// request for profile 42, a player on team 1.
type rsvpFixture struct {
	handler *rsvpsHandler
	store   *fakeAttendance
	audit   *fakeAudit
	bearer  string
}

func newRSVPFixture(t *testing.T, sess *schedule.Session) *rsvpFixture {
	t.Helper()

	memberships := &fakeMemberships{teams: []auth.TeamRole{
		{TeamID: 1, Name: "Titans", Role: auth.RolePlayer},
	}}
	resolver := auth.NewResolver(token.NewCodec("test-secret"), newFakeTokenStore(), memberships)
	bearer, err := resolver.Issue(context.Background(), 42)
	if err != nil {
		t.Fatalf("issuing test token: %v", err)
	}

	store := &fakeAttendance{session: sess}
	audit := &fakeAudit{}
	authn := &authenticator{resolver: resolver, metrics: metrics.New()}
	return &rsvpFixture{
		handler: newRSVPsHandler(authn, store, fakeDirectory{}, audit, notify.NewMailer(notify.Config{})),
		store:   store,
		audit:   audit,
		bearer:  bearer,
	}
}

func (f *rsvpFixture) put(t *testing.T, body string) httpx.Response {
	t.Helper()
	r := httptest.NewRequest(http.MethodPut, "/teams/1/sessions/5/rsvps/self", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+f.bearer)
	params := httpx.Params{"team_id": "1", "session_id": "5"}
	return f.handler.UpsertSelf(httpx.NewRequest(r), params)
}

func upcomingSession() *schedule.Session {
	return &schedule.Session{
		ID:      5,
		TeamID:  1,
		Title:   "Practice",
		StartAt: time.Now().Add(2 * time.Hour),
		EndAt:   time.Now().Add(4 * time.Hour),
	}
}

func TestRSVPUpsertTrimsNote(t *testing.T) {
	f := newRSVPFixture(t, upcomingSession())

	resp := f.put(t, `{"status":"YES","note":"  bringing cones  "}`)
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.Status, resp.Body)
	}
	if len(f.store.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(f.store.writes))
	}
	w := f.store.writes[0]
	if w.profileID != 42 || w.status != schedule.RSVPYes {
		t.Errorf("write = %+v", w)
	}
	if w.note != "bringing cones" {
		t.Errorf("note = %q, want surrounding whitespace trimmed", w.note)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != "created" {
		t.Errorf("audit actions = %v", f.audit.actions)
	}
}

func TestRSVPWindowGates(t *testing.T) {
	tests := []struct {
		name string
		sess *schedule.Session
	}{
		{"explicitly locked", func() *schedule.Session {
			s := upcomingSession()
			s.IsLocked = true
			return s
		}()},
		{"already started", func() *schedule.Session {
			s := upcomingSession()
			s.StartAt = time.Now().Add(-time.Hour)
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRSVPFixture(t, tt.sess)
			resp := f.put(t, `{"status":"yes"}`)
			if resp.Status != http.StatusForbidden {
				t.Fatalf("status = %d, want %d", resp.Status, http.StatusForbidden)
			}
			if msg, _ := resp.Body.(map[string]any)["error"].(string); msg != "RSVP window closed" {
				t.Errorf("error = %q", msg)
			}
			if len(f.store.writes) != 0 {
				t.Error("write recorded despite closed window")
			}
		})
	}
}

func TestRSVPUnknownSession(t *testing.T) {
	f := newRSVPFixture(t, nil)

	resp := f.put(t, `{"status":"yes"}`)
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.Status, http.StatusNotFound)
	}
	if msg, _ := resp.Body.(map[string]any)["error"].(string); msg != "Session not found" {
		t.Errorf("error = %q", msg)
	}
}

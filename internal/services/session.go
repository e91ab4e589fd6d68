package services

import (
	"log"
	"sync"
	"time"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
)

// Flow identifies the top-level USSD feature the caller selected
type Flow string

const (
	FlowNone              Flow = ""
	FlowBookAppointment   Flow = "book_appointment"
	FlowViewAppointments  Flow = "view_appointments"
	FlowCancelAppointment Flow = "cancel_appointment"
)

// Step identifies where the caller is inside the current flow
type Step string

const (
	StepNone         Step = ""
	StepSelectDoctor Step = "select_doctor"
	StepSelectDate   Step = "select_date"
	StepSelectTime   Step = "select_time"
	StepSelectCancel Step = "select_cancel"
)

// SessionData accumulates the caller's selections across menu levels.
// Candidate lists are snapshotted here at render time so that index
// selections stay valid even if the underlying data changes mid-dialog.
type SessionData struct {
	PatientID       string
	PatientName     string
	DoctorID        string
	DoctorName      string
	AppointmentDate string
	AppointmentTime string

	Doctors    []*models.Doctor
	Dates      []string
	CancelList []*models.Appointment
}

// Session represents one in-progress USSD dialog
type Session struct {
	SessionID   string    `json:"session_id"` // Assigned by the telco gateway
	PhoneNumber string    `json:"phone_number"`
	Flow        Flow      `json:"flow"`
	Step        Step      `json:"step"`
	Data        SessionData
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

// ExpectedLevel returns the menu level (number of *-delimited inputs) the
// dialog should be on given the recorded step. A gateway request at any other
// level means a replay or a session the store already evicted.
func (s *Session) ExpectedLevel() int {
	switch s.Step {
	case StepSelectDoctor, StepSelectCancel:
		return 2
	case StepSelectDate:
		return 3
	case StepSelectTime:
		return 4
	default:
		return 1
	}
}

// ResetFlow clears the flow, step and accumulated data
func (s *Session) ResetFlow() {
	s.Flow = FlowNone
	s.Step = StepNone
	s.Data = SessionData{}
}

// SessionManager manages USSD dialog sessions
type SessionManager struct {
	sessions map[string]*Session // keyed by gateway session id
	mu       sync.RWMutex
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// DefaultSessionTTL bounds how long an abandoned dialog stays in memory.
// A USSD dialog lives seconds to low minutes; the gateway does not always
// signal its end, so idle sessions are swept.
const DefaultSessionTTL = 5 * time.Minute

// NewSessionManager creates a new session manager and starts the sweep routine
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	sm := &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}

	go sm.sweepExpiredSessions()

	return sm
}

// GetOrCreate returns the session for a gateway session id, creating it on
// first sight of the id
func (sm *SessionManager) GetOrCreate(sessionID, phoneNumber string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[sessionID]; exists {
		session.LastActive = time.Now()
		return session
	}

	session := &Session{
		SessionID:   sessionID,
		PhoneNumber: phoneNumber,
		Flow:        FlowNone,
		Step:        StepNone,
		CreatedAt:   time.Now(),
		LastActive:  time.Now(),
	}
	sm.sessions[sessionID] = session

	return session
}

// Clear removes a session; clearing an absent session is a no-op
func (sm *SessionManager) Clear(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, sessionID)
}

// ActiveCount returns the number of in-progress dialogs (for monitoring)
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// Stop halts the background sweep routine
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stop)
	})
}

// sweepExpiredSessions runs periodically to evict abandoned dialogs
func (sm *SessionManager) sweepExpiredSessions() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.evictIdle(time.Now())
		case <-sm.stop:
			return
		}
	}
}

// evictIdle removes sessions idle longer than the TTL
func (sm *SessionManager) evictIdle(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		if now.Sub(session.LastActive) > sm.ttl {
			delete(sm.sessions, id)
			log.Printf("Evicted idle USSD session %s (phone %s)", id, session.PhoneNumber)
		}
	}
}

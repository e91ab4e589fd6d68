package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
	"github.com/mediconnect-health/mediconnect-backend/internal/storage"
)

const testPhone = "+233200000001"

// recordingSMS captures outbound messages for assertions
type recordingSMS struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSMS) SendSMS(to, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, to+": "+message)
	return nil
}

func (r *recordingSMS) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func newTestEngine(t *testing.T) (*USSDService, *storage.MemoryStore, *recordingSMS) {
	t.Helper()

	store := storage.NewMemoryStore()
	_, err := store.CreatePatient(&models.Patient{
		PatientID: "PAT-1",
		FirstName: "Akosua",
		LastName:  "Boateng",
		Phone:     testPhone,
	})
	require.NoError(t, err)

	doctors := []*models.Doctor{
		{FirstName: "Kwame", LastName: "Mensah", Specialization: "General Medicine"},
		{FirstName: "Ama", LastName: "Owusu", Specialization: "Pediatrics"},
	}
	for _, d := range doctors {
		_, err := store.CreateDoctor(d)
		require.NoError(t, err)
	}

	sms := &recordingSMS{}
	sessions := NewSessionManager(DefaultSessionTTL)
	t.Cleanup(sessions.Stop)

	return NewUSSDService(store, sms, sessions), store, sms
}

func TestRootMenu(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result := engine.HandleRequest("sess-1", testPhone, "")
	require.True(t, result.Continue)
	require.True(t, strings.HasPrefix(result.Response, "CON "))
	require.Contains(t, result.Response, "Welcome to MediConnect")
	require.Contains(t, result.Response, "1. Book Appointment")
	require.Contains(t, result.Response, "4. Contact Support")
}

func TestEveryResponseHasWirePrefix(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	inputs := []string{
		"", "1", "2", "3", "4", "9", "0", "abc",
		"1*1", "1*99", "1*x", "1*1*1", "1*1*8", "1*1*1*1", "1*1*1*99",
		"9*9*9*9*9*9", "1*1*1*1*1",
	}

	for i, text := range inputs {
		// Fresh session per input so earlier terminals don't interfere
		result := engine.HandleRequest("prefix-sess-"+text, testPhone, text)
		require.NotNil(t, result, "input %d (%q)", i, text)
		hasPrefix := strings.HasPrefix(result.Response, "CON ") || strings.HasPrefix(result.Response, "END ")
		require.True(t, hasPrefix, "input %q produced %q", text, result.Response)
	}
}

func TestFullBookingFlow(t *testing.T) {
	engine, store, sms := newTestEngine(t)
	const sessionID = "book-1"

	result := engine.HandleRequest(sessionID, testPhone, "")
	require.Contains(t, result.Response, "Welcome to MediConnect")

	result = engine.HandleRequest(sessionID, testPhone, "1")
	require.True(t, result.Continue)
	require.Contains(t, result.Response, "Select a doctor:")
	require.Contains(t, result.Response, "1. Dr. Kwame Mensah - General Medicine")
	require.Contains(t, result.Response, "2. Dr. Ama Owusu - Pediatrics")

	result = engine.HandleRequest(sessionID, testPhone, "1*1")
	require.True(t, result.Continue)
	require.Contains(t, result.Response, "Select appointment date:")

	expectedDate := time.Now().AddDate(0, 0, 1).Format("02/01/2006")
	require.Contains(t, result.Response, "1. "+expectedDate)

	result = engine.HandleRequest(sessionID, testPhone, "1*1*1")
	require.True(t, result.Continue)
	require.Contains(t, result.Response, "Select appointment time:")
	require.Contains(t, result.Response, "1. 09:00 AM")

	result = engine.HandleRequest(sessionID, testPhone, "1*1*1*1")
	require.False(t, result.Continue)
	require.True(t, strings.HasPrefix(result.Response, "END "))
	require.Contains(t, result.Response, "Appointment booked successfully!")
	require.Contains(t, result.Response, "Dr. Kwame Mensah")
	require.Contains(t, result.Response, expectedDate)
	require.Contains(t, result.Response, "09:00 AM")
	require.Contains(t, result.Response, "Ref: ")

	appointments, err := store.GetAppointmentsByPatient("PAT-1", 5)
	require.NoError(t, err)
	require.Len(t, appointments, 1)

	booked := appointments[0]
	require.Equal(t, models.AppointmentStatusPending, booked.Status)
	require.Equal(t, models.AppointmentModeOnline, booked.AppointmentMode)
	require.Equal(t, models.USSDBookingAmount, booked.Amount)
	require.Equal(t, models.USSDBookingReason, booked.ReasonForVisit)
	require.Equal(t, "Dr. Kwame Mensah", booked.DoctorName)
	require.Contains(t, result.Response, "Ref: "+booked.Reference())

	require.Equal(t, 1, sms.count())
}

func TestBookingUsesDoctorSnapshot(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	const sessionID = "book-snapshot"

	result := engine.HandleRequest(sessionID, testPhone, "1")
	require.Contains(t, result.Response, "1. Dr. Kwame Mensah")

	// A doctor added mid-dialog must not shift the caller's selection
	_, err := store.CreateDoctor(&models.Doctor{FirstName: "Yaw", LastName: "Darko", Specialization: "Dermatology"})
	require.NoError(t, err)

	engine.HandleRequest(sessionID, testPhone, "1*1")
	engine.HandleRequest(sessionID, testPhone, "1*1*1")
	result = engine.HandleRequest(sessionID, testPhone, "1*1*1*1")
	require.Contains(t, result.Response, "Dr. Kwame Mensah")
}

func TestUnregisteredCaller(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result := engine.HandleRequest("unreg-1", "+233999999999", "1")
	require.False(t, result.Continue)
	require.Equal(t, "END You are not registered. Please register through the mobile app first.", result.Response)

	// No flow state may persist for the failed dialog
	session := engine.Sessions().GetOrCreate("unreg-1", "+233999999999")
	require.Equal(t, FlowNone, session.Flow)
	require.Equal(t, StepNone, session.Step)
}

func TestInvalidRootSelection(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	const sessionID = "root-invalid"

	first := engine.HandleRequest(sessionID, testPhone, "9")
	require.True(t, first.Continue)
	require.True(t, strings.HasPrefix(first.Response, "CON "))
	require.Contains(t, first.Response, "Invalid selection.")
	require.Contains(t, first.Response, "1. Book Appointment")

	session := engine.Sessions().GetOrCreate(sessionID, testPhone)
	require.Equal(t, FlowNone, session.Flow)

	// Re-submitting the same bad digit re-renders the same menu
	second := engine.HandleRequest(sessionID, testPhone, "9")
	require.Equal(t, first.Response, second.Response)
}

func TestInvalidDoctorSelectionDoesNotAdvance(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	const sessionID = "doc-invalid"

	engine.HandleRequest(sessionID, testPhone, "1")

	first := engine.HandleRequest(sessionID, testPhone, "1*99")
	require.True(t, first.Continue)
	require.Contains(t, first.Response, "Invalid doctor selection.")
	require.Contains(t, first.Response, "1. Dr. Kwame Mensah - General Medicine")

	session := engine.Sessions().GetOrCreate(sessionID, testPhone)
	require.Equal(t, StepSelectDoctor, session.Step)

	second := engine.HandleRequest(sessionID, testPhone, "1*99")
	require.Equal(t, first.Response, second.Response)
	require.Equal(t, StepSelectDoctor, session.Step)

	// Non-numeric input gets the same treatment
	third := engine.HandleRequest(sessionID, testPhone, "1*x")
	require.Equal(t, first.Response, third.Response)
}

func TestViewAppointmentsEmpty(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result := engine.HandleRequest("view-empty", testPhone, "2")
	require.False(t, result.Continue)
	require.Equal(t, "END You have no appointments.", result.Response)
}

func TestViewAppointments(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	_, err := store.CreateAppointment(&models.Appointment{
		PatientID:       "PAT-1",
		DoctorID:        "DOC00001",
		DoctorName:      "Dr. Kwame Mensah",
		AppointmentDate: time.Now().AddDate(0, 0, 2),
		Status:          models.AppointmentStatusPending,
	})
	require.NoError(t, err)

	result := engine.HandleRequest("view-1", testPhone, "2")
	require.False(t, result.Continue)
	require.Contains(t, result.Response, "Your appointments:")
	require.Contains(t, result.Response, "1. Dr. Kwame Mensah")
	require.Contains(t, result.Response, models.AppointmentStatusPending)
}

func TestCancelFlow(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	const sessionID = "cancel-1"

	appointment, err := store.CreateAppointment(&models.Appointment{
		PatientID:       "PAT-1",
		DoctorID:        "DOC00001",
		DoctorName:      "Dr. Kwame Mensah",
		AppointmentDate: time.Now().AddDate(0, 0, 3),
		Status:          models.AppointmentStatusPending,
	})
	require.NoError(t, err)

	result := engine.HandleRequest(sessionID, testPhone, "3")
	require.True(t, result.Continue)
	require.Contains(t, result.Response, "Select appointment to cancel:")
	require.Contains(t, result.Response, "1. Dr. Kwame Mensah")

	result = engine.HandleRequest(sessionID, testPhone, "3*1")
	require.False(t, result.Continue)
	require.Contains(t, result.Response, "has been cancelled")
	require.Contains(t, result.Response, "Dr. Kwame Mensah")

	updated, err := store.GetAppointment(appointment.AppointmentID)
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusCancelled, updated.Status)
}

func TestCancelNothingPending(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	// Cancelled appointments are not offered again
	_, err := store.CreateAppointment(&models.Appointment{
		PatientID:       "PAT-1",
		DoctorName:      "Dr. Kwame Mensah",
		AppointmentDate: time.Now().AddDate(0, 0, 3),
		Status:          models.AppointmentStatusCancelled,
	})
	require.NoError(t, err)

	result := engine.HandleRequest("cancel-empty", testPhone, "3")
	require.False(t, result.Continue)
	require.Equal(t, "END No pending appointments to cancel.", result.Response)
}

func TestContactSupport(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result := engine.HandleRequest("support-1", testPhone, "4")
	require.False(t, result.Continue)
	require.Contains(t, result.Response, "END For support")
}

func TestLevelMismatchRestartsDialog(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	// A deep history against a fresh session (gateway replay, or the
	// sweeper evicted the dialog) falls back to the root menu
	result := engine.HandleRequest("replay-1", testPhone, "1*1*1")
	require.True(t, result.Continue)
	require.Contains(t, result.Response, "Welcome to MediConnect")
}

func TestNoDoctorsConfigured(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.CreatePatient(&models.Patient{PatientID: "PAT-1", Phone: testPhone})
	require.NoError(t, err)

	sessions := NewSessionManager(DefaultSessionTTL)
	t.Cleanup(sessions.Stop)
	engine := NewUSSDService(store, nil, sessions)

	result := engine.HandleRequest("nodoc-1", testPhone, "1")
	require.False(t, result.Continue)
	require.Contains(t, result.Response, "END No doctors are available")
}

// panicStore makes any flow blow up at the patient lookup
type panicStore struct {
	storage.Store
}

func (panicStore) FindPatientByPhone(string) (*models.Patient, error) {
	panic("database gone")
}

func TestPanicsBecomeGenericTerminal(t *testing.T) {
	sessions := NewSessionManager(DefaultSessionTTL)
	t.Cleanup(sessions.Stop)
	engine := NewUSSDService(panicStore{storage.NewMemoryStore()}, nil, sessions)

	result := engine.HandleRequest("panic-1", testPhone, "1")
	require.False(t, result.Continue)
	require.Equal(t, "END Sorry, an error occurred. Please try again later.", result.Response)
}

func TestBookingWithoutSMSSenderStillSucceeds(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.CreatePatient(&models.Patient{PatientID: "PAT-1", Phone: testPhone})
	require.NoError(t, err)
	_, err = store.CreateDoctor(&models.Doctor{FirstName: "Kwame", LastName: "Mensah", Specialization: "General Medicine"})
	require.NoError(t, err)

	sessions := NewSessionManager(DefaultSessionTTL)
	t.Cleanup(sessions.Stop)
	engine := NewUSSDService(store, nil, sessions)

	engine.HandleRequest("nosms-1", testPhone, "1")
	engine.HandleRequest("nosms-1", testPhone, "1*1")
	engine.HandleRequest("nosms-1", testPhone, "1*1*1")
	result := engine.HandleRequest("nosms-1", testPhone, "1*1*1*1")
	require.Contains(t, result.Response, "Appointment booked successfully!")
}

package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
	"github.com/mediconnect-health/mediconnect-backend/internal/storage"
)

// Result is the engine's answer for one gateway round trip
type Result struct {
	Response string `json:"response"`
	Continue bool   `json:"continue"`
}

// Terminal messages reused across flows
const (
	msgNotRegistered = "END You are not registered. Please register through the mobile app first."
	msgGenericError  = "END Sorry, an error occurred. Please try again later."
	msgSupport       = "END For support, call +233-XXX-XXXX or email support@mediconnect.com"
)

// USSDService drives the menu flows for the USSD gateway. Everything it needs
// from the rest of the platform (patient lookup, doctor listing, appointment
// writes, SMS) comes in through the store and the SMS sender.
type USSDService struct {
	store    storage.Store
	sms      SMSSender
	sessions *SessionManager
}

// NewUSSDService creates a new USSD flow engine. sms may be nil; confirmations
// are then logged instead of sent.
func NewUSSDService(store storage.Store, sms SMSSender, sessions *SessionManager) *USSDService {
	return &USSDService{
		store:    store,
		sms:      sms,
		sessions: sessions,
	}
}

// Sessions exposes the session manager so the HTTP layer can clear a dialog
// after sending a terminal response
func (u *USSDService) Sessions() *SessionManager {
	return u.sessions
}

// HandleRequest processes one gateway round trip. text is the full
// *-delimited digit history for the dialog, resent by the gateway on every
// request; empty text means the caller just dialed in. The returned response
// always starts with "CON " or "END " and this method never panics past the
// boundary.
func (u *USSDService) HandleRequest(sessionID, phoneNumber, text string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("USSD panic (session %s): %v", sessionID, r)
			result = &Result{Response: msgGenericError, Continue: false}
		}
	}()

	session := u.sessions.GetOrCreate(sessionID, phoneNumber)

	if text == "" {
		return u.showMainMenu()
	}

	inputs := strings.Split(text, "*")
	level := len(inputs)
	input := inputs[level-1]

	// The recorded step determines which level the dialog should be on. A
	// mismatch means a gateway replay or a session the sweeper already
	// evicted mid-dialog; start the dialog over rather than guess what the
	// stale digits meant.
	if level != session.ExpectedLevel() {
		session.ResetFlow()
		return u.showMainMenu()
	}

	if level == 1 {
		return u.handleMainMenuSelection(session, input)
	}
	return u.handleFlowStep(session, input)
}

// showMainMenu renders the root menu
func (u *USSDService) showMainMenu() *Result {
	return &Result{Response: renderMainMenu(), Continue: true}
}

// handleMainMenuSelection routes the first digit to a flow
func (u *USSDService) handleMainMenuSelection(session *Session, input string) *Result {
	switch input {
	case "1":
		return u.startBooking(session)
	case "2":
		session.Flow = FlowViewAppointments
		return u.viewAppointments(session)
	case "3":
		return u.showCancelMenu(session)
	case "4":
		return &Result{Response: msgSupport, Continue: false}
	default:
		session.ResetFlow()
		return &Result{
			Response: renderInvalidRetry("Invalid selection. Please try again.", renderMainMenu()),
			Continue: true,
		}
	}
}

// handleFlowStep routes deeper-level digits by (flow, step). Different flows
// reuse the same numeric level for different semantics, so the pair is what
// gives the newest digit its meaning.
func (u *USSDService) handleFlowStep(session *Session, input string) *Result {
	switch {
	case session.Flow == FlowBookAppointment && session.Step == StepSelectDoctor:
		return u.selectDoctor(session, input)
	case session.Flow == FlowBookAppointment && session.Step == StepSelectDate:
		return u.selectDate(session, input)
	case session.Flow == FlowBookAppointment && session.Step == StepSelectTime:
		return u.selectTime(session, input)
	case session.Flow == FlowCancelAppointment && session.Step == StepSelectCancel:
		return u.cancelSelected(session, input)
	default:
		session.ResetFlow()
		return u.showMainMenu()
	}
}

// startBooking verifies the caller is a registered patient and renders the
// doctor list. The list is snapshotted into the session so the next digit
// selects against exactly what was shown.
func (u *USSDService) startBooking(session *Session) *Result {
	patient, err := u.store.FindPatientByPhone(session.PhoneNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return &Result{Response: msgNotRegistered, Continue: false}
	}
	if err != nil {
		return u.failure(session, "patient lookup", err)
	}

	doctors, err := u.store.ListDoctors(10)
	if err != nil {
		return u.failure(session, "doctor listing", err)
	}
	if len(doctors) == 0 {
		return &Result{Response: "END No doctors are available right now. Please try again later.", Continue: false}
	}

	session.Flow = FlowBookAppointment
	session.Step = StepSelectDoctor
	session.Data = SessionData{
		PatientID:   patient.PatientID,
		PatientName: patient.FullName(),
		Doctors:     doctors,
	}

	return &Result{Response: renderDoctorMenu(doctors), Continue: true}
}

// selectDoctor interprets the digit as an index into the snapshotted doctor list
func (u *USSDService) selectDoctor(session *Session, input string) *Result {
	i, ok := parseSelection(input, len(session.Data.Doctors))
	if !ok {
		return &Result{
			Response: renderInvalidRetry("Invalid doctor selection. Please try again.", renderDoctorMenu(session.Data.Doctors)),
			Continue: true,
		}
	}

	doctor := session.Data.Doctors[i]
	session.Data.DoctorID = doctor.DoctorID
	session.Data.DoctorName = doctor.DisplayName()
	session.Data.Dates = availableDates(time.Now())
	session.Step = StepSelectDate

	return &Result{Response: renderDateMenu(session.Data.Dates), Continue: true}
}

// selectDate interprets the digit as an index into the snapshotted date list
func (u *USSDService) selectDate(session *Session, input string) *Result {
	i, ok := parseSelection(input, len(session.Data.Dates))
	if !ok {
		return &Result{
			Response: renderInvalidRetry("Invalid date selection. Please try again.", renderDateMenu(session.Data.Dates)),
			Continue: true,
		}
	}

	session.Data.AppointmentDate = session.Data.Dates[i]
	session.Step = StepSelectTime

	return &Result{Response: renderTimeMenu(availableTimeSlots), Continue: true}
}

// selectTime interprets the digit as a time slot and completes the booking
func (u *USSDService) selectTime(session *Session, input string) *Result {
	i, ok := parseSelection(input, len(availableTimeSlots))
	if !ok {
		return &Result{
			Response: renderInvalidRetry("Invalid time selection. Please try again.", renderTimeMenu(availableTimeSlots)),
			Continue: true,
		}
	}

	session.Data.AppointmentTime = availableTimeSlots[i]
	return u.confirmBooking(session)
}

// confirmBooking creates the appointment and sends the SMS confirmation.
// The SMS is strictly best-effort: a provider failure never downgrades a
// successful booking into an error response.
func (u *USSDService) confirmBooking(session *Session) *Result {
	when, err := parseAppointmentDateTime(session.Data.AppointmentDate, session.Data.AppointmentTime)
	if err != nil {
		return u.failure(session, "datetime parse", err)
	}

	appointment, err := u.store.CreateAppointment(&models.Appointment{
		PatientID:       session.Data.PatientID,
		DoctorID:        session.Data.DoctorID,
		DoctorName:      session.Data.DoctorName,
		AppointmentDate: when,
		AppointmentMode: models.AppointmentModeOnline,
		ReasonForVisit:  models.USSDBookingReason,
		Amount:          models.USSDBookingAmount,
		Status:          models.AppointmentStatusPending,
	})
	if err != nil {
		log.Printf("USSD booking failed (session %s): %v", session.SessionID, err)
		return &Result{Response: "END Sorry, booking failed. Please try again later.", Continue: false}
	}

	u.sendBookingConfirmation(session, appointment)

	response := fmt.Sprintf("END Appointment booked successfully!\nDoctor: %s\nDate: %s\nTime: %s\nRef: %s\nYou will receive an SMS confirmation.",
		session.Data.DoctorName,
		session.Data.AppointmentDate,
		session.Data.AppointmentTime,
		appointment.Reference())

	return &Result{Response: response, Continue: false}
}

// sendBookingConfirmation sends the confirmation SMS; failures are logged only
func (u *USSDService) sendBookingConfirmation(session *Session, appointment *models.Appointment) {
	message := fmt.Sprintf("MediConnect: Your appointment is confirmed!\nDoctor: %s\nDate: %s %s\nReference: %s\nPlease arrive 15 minutes early.",
		session.Data.DoctorName,
		session.Data.AppointmentDate,
		session.Data.AppointmentTime,
		appointment.Reference())

	if u.sms == nil {
		log.Printf("Demo mode - SMS would be sent to %s: %s", session.PhoneNumber, message)
		return
	}

	if err := u.sms.SendSMS(session.PhoneNumber, message); err != nil {
		log.Printf("Failed to send booking confirmation SMS to %s: %v", session.PhoneNumber, err)
	}
}

// viewAppointments renders the caller's appointments as a terminal response
func (u *USSDService) viewAppointments(session *Session) *Result {
	patient, err := u.store.FindPatientByPhone(session.PhoneNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return &Result{Response: msgNotRegistered, Continue: false}
	}
	if err != nil {
		return u.failure(session, "patient lookup", err)
	}

	appointments, err := u.store.GetAppointmentsByPatient(patient.PatientID, 5)
	if err != nil {
		log.Printf("View appointments failed (session %s): %v", session.SessionID, err)
		return &Result{Response: "END Error retrieving appointments.", Continue: false}
	}

	if len(appointments) == 0 {
		return &Result{Response: "END You have no appointments.", Continue: false}
	}

	return &Result{Response: renderAppointmentList(appointments), Continue: false}
}

// showCancelMenu lists the caller's pending appointments for cancellation.
// The list is snapshotted so the next digit cancels exactly the appointment
// the caller saw at that position.
func (u *USSDService) showCancelMenu(session *Session) *Result {
	patient, err := u.store.FindPatientByPhone(session.PhoneNumber)
	if errors.Is(err, storage.ErrNotFound) {
		return &Result{Response: "END You are not registered.", Continue: false}
	}
	if err != nil {
		return u.failure(session, "patient lookup", err)
	}

	appointments, err := u.store.GetPendingAppointmentsByPatient(patient.PatientID, 5)
	if err != nil {
		log.Printf("Cancel menu failed (session %s): %v", session.SessionID, err)
		return &Result{Response: "END Error loading appointments.", Continue: false}
	}

	if len(appointments) == 0 {
		return &Result{Response: "END No pending appointments to cancel.", Continue: false}
	}

	session.Flow = FlowCancelAppointment
	session.Step = StepSelectCancel
	session.Data = SessionData{
		PatientID:  patient.PatientID,
		CancelList: appointments,
	}

	return &Result{Response: renderCancelMenu(appointments), Continue: true}
}

// cancelSelected cancels the appointment picked from the snapshot list
func (u *USSDService) cancelSelected(session *Session, input string) *Result {
	i, ok := parseSelection(input, len(session.Data.CancelList))
	if !ok {
		return &Result{
			Response: renderInvalidRetry("Invalid selection. Please try again.", renderCancelMenu(session.Data.CancelList)),
			Continue: true,
		}
	}

	appointment := session.Data.CancelList[i]
	if err := u.store.UpdateAppointmentStatus(appointment.AppointmentID, models.AppointmentStatusCancelled); err != nil {
		log.Printf("Cancellation failed (session %s, appointment %s): %v", session.SessionID, appointment.AppointmentID, err)
		return &Result{Response: "END Sorry, cancellation failed. Please try again later.", Continue: false}
	}

	response := fmt.Sprintf("END Your appointment with %s on %s has been cancelled.",
		appointment.DoctorName,
		appointment.AppointmentDate.Format(dateFormat))

	return &Result{Response: response, Continue: false}
}

// failure logs a collaborator error with full detail and returns the generic
// terminal message; the raw error never reaches the gateway
func (u *USSDService) failure(session *Session, op string, err error) *Result {
	log.Printf("USSD %s error (session %s): %v", op, session.SessionID, err)
	return &Result{Response: msgGenericError, Continue: false}
}

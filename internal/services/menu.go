package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
)

// Response prefixes dictated by the telco gateway protocol: "CON " means the
// dialog continues and more input is expected, "END " terminates it. The
// prefix and the single trailing space are a hard wire contract.
const (
	prefixContinue = "CON "
	prefixEnd      = "END "
)

const mainMenuBody = `Welcome to MediConnect
1. Book Appointment
2. View My Appointments
3. Cancel Appointment
4. Contact Support`

const dateFormat = "02/01/2006"

// availableTimeSlots are the fixed bookable slots offered over USSD
var availableTimeSlots = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

// renderMainMenu renders the root menu
func renderMainMenu() string {
	return prefixContinue + mainMenuBody
}

// renderInvalidRetry prefixes a re-rendered menu with an error line. The menu
// argument must be a full CON response; its body is reused as-is so the
// caller's next digit still matches the numbering they saw.
func renderInvalidRetry(message, menu string) string {
	return prefixContinue + message + "\n" + strings.TrimPrefix(menu, prefixContinue)
}

// renderDoctorMenu renders a numbered doctor list
func renderDoctorMenu(doctors []*models.Doctor) string {
	var b strings.Builder
	b.WriteString(prefixContinue)
	b.WriteString("Select a doctor:")
	for i, doctor := range doctors {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, doctor.DisplayName(), doctor.Specialization)
	}
	return b.String()
}

// renderDateMenu renders a numbered date list
func renderDateMenu(dates []string) string {
	var b strings.Builder
	b.WriteString(prefixContinue)
	b.WriteString("Select appointment date:")
	for i, date := range dates {
		fmt.Fprintf(&b, "\n%d. %s", i+1, date)
	}
	return b.String()
}

// renderTimeMenu renders a numbered time-slot list
func renderTimeMenu(times []string) string {
	var b strings.Builder
	b.WriteString(prefixContinue)
	b.WriteString("Select appointment time:")
	for i, slot := range times {
		fmt.Fprintf(&b, "\n%d. %s", i+1, slot)
	}
	return b.String()
}

// renderAppointmentList renders the terminal "your appointments" view
func renderAppointmentList(appointments []*models.Appointment) string {
	var b strings.Builder
	b.WriteString(prefixEnd)
	b.WriteString("Your appointments:")
	for i, appointment := range appointments {
		fmt.Fprintf(&b, "\n%d. %s", i+1, appointment.DoctorName)
		fmt.Fprintf(&b, "\n   %s - %s", appointment.AppointmentDate.Format(dateFormat), appointment.Status)
	}
	return b.String()
}

// renderCancelMenu renders the numbered list of cancellable appointments
func renderCancelMenu(appointments []*models.Appointment) string {
	var b strings.Builder
	b.WriteString(prefixContinue)
	b.WriteString("Select appointment to cancel:")
	for i, appointment := range appointments {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, appointment.DoctorName, appointment.AppointmentDate.Format(dateFormat))
	}
	return b.String()
}

// availableDates returns the bookable dates: the next seven calendar days
func availableDates(now time.Time) []string {
	dates := make([]string, 0, 7)
	for i := 1; i <= 7; i++ {
		dates = append(dates, now.AddDate(0, 0, i).Format(dateFormat))
	}
	return dates
}

// parseSelection interprets a menu digit as a 1-based index into a list of n
// items, returning the 0-based index. Non-numeric and out-of-range inputs
// report false so the caller re-renders the menu instead of advancing.
func parseSelection(input string, n int) (int, bool) {
	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || choice < 1 || choice > n {
		return 0, false
	}
	return choice - 1, true
}

// parseAppointmentDateTime composes the stored date and time slot selections
// into the appointment timestamp
func parseAppointmentDateTime(date, slot string) (time.Time, error) {
	return time.ParseInLocation(dateFormat+" 03:04 PM", date+" "+slot, time.Local)
}

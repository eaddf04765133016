package reminders

import (
	"fmt"
	"time"
)

// EmailBody renders the plain-text email reminder.
func EmailBody(b Booking, offset time.Duration) string {
	when := b.AppointmentTime.Format("Monday, January 2 at 3:04 PM")
	clinic := clinicName(b)
	if offset >= 24*time.Hour {
		return fmt.Sprintf(
			"Hi %s,\n\nThis is a reminder that you have an appointment at %s on %s.\n\nIf you need to reschedule, please contact us as soon as possible.\n\n%s",
			patientName(b), clinic, when, clinic)
	}
	return fmt.Sprintf(
		"Hi %s,\n\nYour appointment at %s is coming up soon: %s.\n\nSee you shortly!\n\n%s",
		patientName(b), clinic, when, clinic)
}

// SMSBody renders the text-message reminder, kept under one segment where
// names allow.
func SMSBody(b Booking, offset time.Duration) string {
	when := b.AppointmentTime.Format("Mon Jan 2, 3:04 PM")
	if offset >= 24*time.Hour {
		return fmt.Sprintf("%s: reminder, you have an appointment %s. Reply to this number with any questions.", clinicName(b), when)
	}
	return fmt.Sprintf("%s: your appointment is at %s today. See you soon!", clinicName(b), when)
}

func patientName(b Booking) string {
	if b.PatientName != "" {
		return b.PatientName
	}
	return "there"
}

func clinicName(b Booking) string {
	if b.ClinicName != "" {
		return b.ClinicName
	}
	return "your clinic"
}

package services

import (
	"fmt"
	"html"
	"time"

	"github.com/telecare/telehealth_api/models"
)

func slotLabel(s *models.Schedule) string {
	return fmt.Sprintf("%s, %s - %s", time.Time(s.Date).Format("02/01/2006"), s.StartTime, s.EndTime)
}

func nameOf(u *models.User) string {
	if u == nil {
		return "there"
	}
	return html.EscapeString(u.FullName)
}

func registerEmailForDoctor(s *models.Schedule, doctor, patient *models.User) (string, string) {
	return "New appointment request",
		fmt.Sprintf("<h1>New appointment request</h1><p>Hi Dr. %s,</p><p>%s has registered for your schedule on <b>%s</b> (%s). Please accept or reject it from your dashboard.</p>",
			nameOf(doctor), nameOf(patient), slotLabel(s), s.AppointmentType)
}

func registerEmailForPatient(s *models.Schedule, doctor, patient *models.User) (string, string) {
	return "Your appointment request was sent",
		fmt.Sprintf("<h1>Request sent</h1><p>Hi %s,</p><p>Your request for <b>%s</b> with Dr. %s is waiting for the doctor's confirmation.</p>",
			nameOf(patient), slotLabel(s), nameOf(doctor))
}

func acceptEmail(s *models.Schedule, recipient, counterpart *models.User, forDoctor bool) (string, string) {
	link := ""
	if s.MeetingLink != nil && *s.MeetingLink != "" {
		link = fmt.Sprintf("<p><b>Meeting link:</b> <a href='%s'>Join</a></p>", html.EscapeString(*s.MeetingLink))
	}
	with := "Dr. " + nameOf(counterpart)
	if forDoctor {
		with = nameOf(counterpart)
	}
	return "Appointment confirmed",
		fmt.Sprintf("<h1>Appointment confirmed</h1><p>Hi %s,</p><p>Your appointment with %s on <b>%s</b> is confirmed.</p>%s",
			nameOf(recipient), with, slotLabel(s), link)
}

func rejectEmail(s *models.Schedule, doctor, patient *models.User, reason string) (string, string) {
	return "Appointment request declined",
		fmt.Sprintf("<h1>Request declined</h1><p>Hi %s,</p><p>Dr. %s could not take your appointment on <b>%s</b>.</p><p><b>Reason:</b> %s</p>",
			nameOf(patient), nameOf(doctor), slotLabel(s), html.EscapeString(reason))
}

func cancelEmailForDoctor(s *models.Schedule, doctor, patient *models.User, reason string) (string, string) {
	return "Appointment cancelled by patient",
		fmt.Sprintf("<h1>Appointment cancelled</h1><p>Hi Dr. %s,</p><p>%s cancelled the appointment on <b>%s</b>. The slot is open again.</p><p><b>Reason:</b> %s</p>",
			nameOf(doctor), nameOf(patient), slotLabel(s), html.EscapeString(reason))
}

func cancelEmailForAdmin(s *models.Schedule, doctor, patient *models.User, reason string) (string, string) {
	return "Appointment cancellation",
		fmt.Sprintf("<h1>Appointment cancellation</h1><p>Patient %s cancelled the appointment with Dr. %s on <b>%s</b>.</p><p><b>Reason:</b> %s</p>",
			nameOf(patient), nameOf(doctor), slotLabel(s), html.EscapeString(reason))
}

func reminderEmail(s *models.Schedule, recipient, counterpart *models.User, forDoctor bool) (string, string) {
	with := "Dr. " + nameOf(counterpart)
	if forDoctor {
		with = nameOf(counterpart)
	}
	link := ""
	if s.MeetingLink != nil && *s.MeetingLink != "" {
		link = fmt.Sprintf("<p><b>Meeting link:</b> <a href='%s'>Join</a></p>", html.EscapeString(*s.MeetingLink))
	}
	return "Reminder: your appointment starts within the hour",
		fmt.Sprintf("<h1>Appointment reminder</h1><p>Hi %s,</p><p>Your appointment with %s starts at <b>%s</b>.</p>%s",
			nameOf(recipient), with, slotLabel(s), link)
}

package domain

import "time"

type DocumentType string

const (
	DocPassport       DocumentType = "passport"
	DocIDCard         DocumentType = "id_card"
	DocDrivingLicence DocumentType = "driving_licence"
)

type CompanionGuest struct {
	FirstName string
	LastName  string
}

type OnlineCheckin struct {
	BookingID        int64
	Status           string // "submitted"
	DocumentType     DocumentType
	DocumentNumber   string
	Nationality      string
	DateOfBirth      time.Time
	Address          string
	ArrivalTime      string
	AdditionalGuests []CompanionGuest
	TermsAccepted    bool
	SubmittedAt      time.Time
}

const CheckinSubmitted = "submitted"

// CheckinWindow is the range of days in which a guest may check in online.
func CheckinWindow(checkIn time.Time, daysBefore int) DateRange {
	in := Day(checkIn)
	return DateRange{From: in.AddDate(0, 0, -daysBefore), To: in.AddDate(0, 0, 1)}
}

// AgeOn returns completed years between dob and day.
func AgeOn(dob, day time.Time) int {
	dob, day = Day(dob), Day(day)
	years := day.Year() - dob.Year()
	if day.Month() < dob.Month() || (day.Month() == dob.Month() && day.Day() < dob.Day()) {
		years--
	}
	return years
}

type CheckinView struct {
	Booking    Booking
	Room       Room
	Window     DateRange
	WindowOpen bool
	Existing   *OnlineCheckin
}

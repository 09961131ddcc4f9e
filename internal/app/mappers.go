package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"venue_hotel/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Beds24 payloads differ between API versions and booking channels; each
// field is read from the first alias that carries a value.
var channelBookingAliases = map[string][]string{
	"id":         {"id", "bookId", "bookingId"},
	"room_id":    {"roomId", "room_id", "roomID"},
	"status":     {"status", "bookingStatus"},
	"first_name": {"firstName", "guestFirstName", "first_name", "guest.firstName"},
	"last_name":  {"lastName", "guestName", "last_name", "guest.lastName"},
	"email":      {"email", "guestEmail", "guest.email"},
	"phone":      {"phone", "mobile", "guestPhone", "guest.phone"},
	"adults":     {"numAdult", "adults", "numAdults"},
	"children":   {"numChild", "children", "numChildren"},
	"arrival":    {"arrival", "firstNight", "checkIn"},
	"departure":  {"departure", "checkOut"},
	"last_night": {"lastNight"},
	"price":      {"price", "totalPrice", "invoice.total"},
	"notes":      {"notes", "comments", "guestComments"},
}

// Beds24 status vocabulary to local lifecycle.
var channelStatuses = map[string]domain.BookingStatus{
	"new":       domain.BookingConfirmed,
	"confirmed": domain.BookingConfirmed,
	"1":         domain.BookingConfirmed,
	"request":   domain.BookingPending,
	"3":         domain.BookingPending,
	"cancelled": domain.BookingCancelled,
	"canceled":  domain.BookingCancelled,
	"0":         domain.BookingCancelled,
	"black":     domain.BookingCancelled, // owner block, not a sale
	"inquiry":   domain.BookingPending,
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path as a string, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func firstAlias(m map[string]any, key string) string {
	for _, p := range channelBookingAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstInt64Flexible: int64 from several aliases (float64/int/string).
func firstInt64Flexible(m map[string]any, key string) (int64, bool) {
	s := firstAlias(m, key)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// decimalFlexible accepts 120, "120.5" or "120,5".
func decimalFlexible(m map[string]any, key string) decimal.Decimal {
	s := strings.ReplaceAll(firstAlias(m, key), ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return domain.Money(d)
}

func dayFlexible(m map[string]any, key string) (time.Time, bool) {
	s := firstAlias(m, key)
	if len(s) >= len(domain.DayLayout) {
		s = s[:len(domain.DayLayout)]
	}
	t, err := domain.ParseDay(s)
	return t, err == nil
}

/********** channel booking mapper **********/

// mapChannelBooking turns one Beds24 booking payload into a ChannelBooking.
func mapChannelBooking(p map[string]any) (domain.ChannelBooking, error) {
	var cb domain.ChannelBooking
	cb.ExternalID = firstAlias(p, "id")
	if cb.ExternalID == "" {
		return cb, fmt.Errorf("booking without id")
	}
	roomID, ok := firstInt64Flexible(p, "room_id")
	if !ok {
		return cb, fmt.Errorf("booking %s: missing roomId", cb.ExternalID)
	}
	cb.Beds24RoomID = roomID

	st, ok := channelStatuses[strings.ToLower(firstAlias(p, "status"))]
	if !ok {
		st = domain.BookingConfirmed
	}
	cb.Status = st

	arrival, ok := dayFlexible(p, "arrival")
	if !ok {
		return cb, fmt.Errorf("booking %s: missing arrival", cb.ExternalID)
	}
	cb.Arrival = arrival
	if dep, ok := dayFlexible(p, "departure"); ok {
		cb.Departure = dep
	} else if last, ok := dayFlexible(p, "last_night"); ok {
		cb.Departure = last.AddDate(0, 0, 1)
	} else {
		return cb, fmt.Errorf("booking %s: missing departure", cb.ExternalID)
	}
	if !cb.Departure.After(cb.Arrival) {
		return cb, fmt.Errorf("booking %s: departure %s not after arrival %s",
			cb.ExternalID, domain.DayKey(cb.Departure), domain.DayKey(cb.Arrival))
	}

	cb.Guest = domain.Guest{
		FirstName: firstAlias(p, "first_name"),
		LastName:  firstAlias(p, "last_name"),
		Email:     firstAlias(p, "email"),
		Phone:     firstAlias(p, "phone"),
	}
	if cb.Guest.LastName == "" {
		cb.Guest.LastName = "Guest"
	}
	if n, ok := firstInt64Flexible(p, "adults"); ok && n > 0 {
		cb.Adults = int(n)
	} else {
		cb.Adults = 1
	}
	if n, ok := firstInt64Flexible(p, "children"); ok && n > 0 {
		cb.Children = int(n)
	}
	cb.Price = decimalFlexible(p, "price")
	cb.Notes = firstAlias(p, "notes")
	return cb, nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoomMapping routes sync traffic for a local room to its Beds24 counterpart.
type RoomMapping struct {
	ID               int64
	RoomID           int64
	Beds24PropertyID int64
	Beds24RoomID     int64
	Active           bool
	CreatedAt        time.Time
}

// InventorySpan is a run of consecutive days sharing price, availability and min stay.
// To is inclusive, as Beds24 expects.
type InventorySpan struct {
	From     time.Time
	To       time.Time
	Price    decimal.Decimal
	NumAvail int
	MinStay  int
}

// CollapseCalendar folds consecutive identical days into spans.
func CollapseCalendar(days []CalendarDay) []InventorySpan {
	var out []InventorySpan
	for _, d := range days {
		avail := d.Available
		if d.Closed {
			avail = 0
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.To.AddDate(0, 0, 1).Equal(d.Day) && last.Price.Equal(d.BasePrice) &&
				last.NumAvail == avail && last.MinStay == d.MinStay {
				last.To = d.Day
				continue
			}
		}
		out = append(out, InventorySpan{From: d.Day, To: d.Day, Price: d.BasePrice, NumAvail: avail, MinStay: d.MinStay})
	}
	return out
}

type SyncDirection string

const (
	SyncPush SyncDirection = "push"
	SyncPull SyncDirection = "pull"
)

type SyncLog struct {
	ID        int64
	Direction SyncDirection
	RoomID    *int64
	From      *time.Time
	To        *time.Time
	OK        bool
	Detail    string
	CreatedAt time.Time
}

type PushResult struct {
	RoomID       int64
	Beds24RoomID int64
	Window       DateRange
	Days         int
	Spans        []InventorySpan
	Err          error
}

type PullResult struct {
	Fetched  int
	Created  int
	Updated  int
	Skipped  int
	Since    time.Time
	Upstream time.Time
}

// ChannelBooking is a booking as reported by the channel manager.
type ChannelBooking struct {
	ExternalID   string
	Beds24RoomID int64
	Status       BookingStatus
	Guest        Guest
	Adults       int
	Children     int
	Arrival      time.Time
	Departure    time.Time // day of departure, not last night
	Price        decimal.Decimal
	Notes        string
}

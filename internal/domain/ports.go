package domain

import (
	"context"
	"time"
)

type RoomRepository interface {
	CreateRoom(ctx context.Context, r Room) (Room, error)
	UpdateRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context, activeOnly bool) ([]Room, error)
}

type RateRepository interface {
	CreatePolicy(ctx context.Context, p RatePolicy) (RatePolicy, error)
	UpdatePolicy(ctx context.Context, p RatePolicy) error
	GetPolicy(ctx context.Context, id int64) (RatePolicy, error)
	ListPolicies(ctx context.Context) ([]RatePolicy, error)
	AttachPolicy(ctx context.Context, a PolicyAssignment) (PolicyAssignment, error)
	ListAssignments(ctx context.Context, roomID int64) ([]PolicyAssignment, error)

	// UpsertPriceOverrides writes one row per (room, day); replaying is a no-op.
	UpsertPriceOverrides(ctx context.Context, os []PriceOverride) error
	ListPriceOverrides(ctx context.Context, roomID int64, r DateRange) ([]PriceOverride, error)
}

type BookingRepository interface {
	// CreateBooking inserts b after re-counting occupancy under a lock.
	// It returns ErrUnavailable when any night already holds units bookings.
	// units <= 0 skips the occupancy guard.
	CreateBooking(ctx context.Context, b Booking, units int) (Booking, error)
	UpdateBooking(ctx context.Context, b Booking) error
	// SetBookingStatus moves a booking from -> to, failing with ErrConflict if it is no longer in from.
	SetBookingStatus(ctx context.Context, id int64, from, to BookingStatus) error
	GetBooking(ctx context.Context, id int64) (Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (Booking, error)
	GetBookingByExternalID(ctx context.Context, source BookingSource, externalID string) (Booking, error)
	ListBookings(ctx context.Context, q BookingsQuery) ([]Booking, error)
}

type PaymentRepository interface {
	// AddPayment is idempotent on (booking, reference): created is false when it already existed.
	// Under the booking lock it applies CheckPayment to the stored ledger before inserting.
	AddPayment(ctx context.Context, p Payment) (stored Payment, created bool, err error)
	ListPayments(ctx context.Context, bookingID int64) ([]Payment, error)
	ListPaymentsReceived(ctx context.Context, day time.Time, method PaymentMethod) ([]Payment, error)
}

type CashRepository interface {
	CreateDeposit(ctx context.Context, d CashDeposit) (CashDeposit, error)
	// UpdateDeposit writes d only if the stored status is still from.
	UpdateDeposit(ctx context.Context, d CashDeposit, from CashStatus) error
	GetDeposit(ctx context.Context, id int64) (CashDeposit, error)
	ListDeposits(ctx context.Context, q CashQuery) ([]CashDeposit, error)
}

type CheckinRepository interface {
	UpsertCheckin(ctx context.Context, c OnlineCheckin) error
	GetCheckin(ctx context.Context, bookingID int64) (OnlineCheckin, error)
}

type WeddingRepository interface {
	CreateProposal(ctx context.Context, p WeddingProposal) (WeddingProposal, error)
	// UpdateProposal writes p only if the stored status is still from.
	UpdateProposal(ctx context.Context, p WeddingProposal, from ProposalStatus) error
	GetProposal(ctx context.Context, id int64) (WeddingProposal, error)
	GetProposalByToken(ctx context.Context, token string) (WeddingProposal, error)
	ListProposals(ctx context.Context, q ProposalQuery) ([]WeddingProposal, error)
}

type ChannelRepository interface {
	CreateMapping(ctx context.Context, m RoomMapping) (RoomMapping, error)
	DeleteMapping(ctx context.Context, id int64) error
	GetMappingByRoom(ctx context.Context, roomID int64) (RoomMapping, error)
	GetMappingByBeds24Room(ctx context.Context, beds24RoomID int64) (RoomMapping, error)
	ListMappings(ctx context.Context, activeOnly bool) ([]RoomMapping, error)

	RecordSync(ctx context.Context, l SyncLog) error
	ListSyncLogs(ctx context.Context, limit int) ([]SyncLog, error)
	GetSyncCursor(ctx context.Context, name string) (time.Time, bool, error)
	SetSyncCursor(ctx context.Context, name string, at time.Time) error
}

// Store is everything the services persist.
type Store interface {
	RoomRepository
	RateRepository
	BookingRepository
	PaymentRepository
	CashRepository
	CheckinRepository
	WeddingRepository
	ChannelRepository
}

// ChannelClient talks to the channel manager.
type ChannelClient interface {
	PushCalendar(ctx context.Context, beds24RoomID int64, spans []InventorySpan) error
	FetchBookings(ctx context.Context, modifiedSince time.Time) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) error
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"venue_hotel/internal/domain"
)

// ---- bookings ----

// CreateBooking locks the room row, recounts nightly occupancy from the
// overlapping bookings and inserts only if every night still has a free unit.
func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking, units int) (domain.Booking, error) {
	now := r.now()
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if units > 0 {
			var id int64
			if err := tx.GetContext(ctx, &id, lockRoomSQL, b.RoomID); err != nil {
				return mapErr(err)
			}
			stay := b.Stay()
			var rows []bookingRow
			if err := tx.SelectContext(ctx, &rows, overlappingBookingsSQL, b.RoomID, dayArg(stay.To), dayArg(stay.From)); err != nil {
				return err
			}
			existing := make([]domain.Booking, 0, len(rows))
			for _, row := range rows {
				existing = append(existing, row.toDomain())
			}
			occ := domain.NightlyOccupancy(existing, stay)
			for _, d := range stay.List() {
				if occ[domain.DayKey(d)] >= units {
					return domain.Unavailable("sold out on %s", domain.DayKey(d))
				}
			}
		}
		res, err := tx.ExecContext(ctx, insertBookingSQL,
			b.Reference, b.RoomID, valPolicy(b.PolicyID),
			b.Guest.FirstName, b.Guest.LastName, b.Guest.Email, b.Guest.Phone,
			b.Adults, b.Children, dayArg(b.CheckIn), dayArg(b.CheckOut),
			string(b.Status), string(b.Source), valStr(b.ExternalID),
			b.Total, b.Prepay, b.Currency, b.Notes, now, now,
		)
		if err != nil {
			return mapErr(err)
		}
		b.ID, _ = res.LastInsertId()
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	b.CreatedAt, b.UpdatedAt = now, now
	return b, nil
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) error {
	res, err := r.db.ExecContext(ctx, updateBookingSQL,
		b.RoomID, valPolicy(b.PolicyID),
		b.Guest.FirstName, b.Guest.LastName, b.Guest.Email, b.Guest.Phone,
		b.Adults, b.Children, dayArg(b.CheckIn), dayArg(b.CheckOut),
		string(b.Status), b.Total, b.Prepay, b.Notes, r.now(), b.ID,
	)
	if err != nil {
		return mapErr(err)
	}
	return r.updateResult(ctx, res, "bookings", b.ID)
}

func (r *Repo) SetBookingStatus(ctx context.Context, id int64, from, to domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, setBookingStatusSQL, string(to), r.now(), id, string(from))
	if err != nil {
		return err
	}
	return r.casResult(ctx, res, "bookings", id)
}

func (r *Repo) getBooking(ctx context.Context, where string, args ...any) (domain.Booking, error) {
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+bookingCols+" FROM bookings WHERE "+where, args...); err != nil {
		return domain.Booking{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	return r.getBooking(ctx, "id = ?", id)
}

func (r *Repo) GetBookingByReference(ctx context.Context, ref string) (domain.Booking, error) {
	return r.getBooking(ctx, "reference = ?", strings.ToUpper(ref))
}

func (r *Repo) GetBookingByExternalID(ctx context.Context, source domain.BookingSource, externalID string) (domain.Booking, error) {
	return r.getBooking(ctx, "source = ? AND external_id = ?", string(source), externalID)
}

func (r *Repo) ListBookings(ctx context.Context, q domain.BookingsQuery) ([]domain.Booking, error) {
	var (
		where []string
		args  []any
	)
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.RoomID != nil {
		where = append(where, "room_id = ?")
		args = append(args, *q.RoomID)
	}
	if q.Range != nil {
		where = append(where, "check_in < ? AND check_out > ?")
		args = append(args, dayArg(q.Range.To), dayArg(q.Range.From))
	}
	query := "SELECT " + bookingCols + " FROM bookings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ---- payments ----

// AddPayment locks the booking row, returns the stored payment on a repeated
// reference, and inserts only if p fits the ledger rebuilt inside the lock.
func (r *Repo) AddPayment(ctx context.Context, p domain.Payment) (domain.Payment, bool, error) {
	now := r.now()
	var (
		stored  domain.Payment
		created bool
	)
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var brow bookingRow
		if err := tx.GetContext(ctx, &brow, lockBookingSQL, p.BookingID); err != nil {
			return mapErr(err)
		}
		if p.Reference != nil {
			var row paymentRow
			err := tx.GetContext(ctx, &row, paymentByReferenceSQL, p.BookingID, *p.Reference)
			switch {
			case err == nil:
				stored = row.toDomain()
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}
		}
		var rows []paymentRow
		if err := tx.SelectContext(ctx, &rows, listPaymentsSQL, p.BookingID); err != nil {
			return err
		}
		b := brow.toDomain()
		if err := domain.CheckPayment(b, domain.BuildLedger(b, paymentsToDomain(rows)), p); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, insertPaymentSQL,
			p.BookingID, string(p.Kind), string(p.Method), p.Amount, string(p.Status),
			valStr(p.Reference), p.RecordedBy, p.ReceivedAt.UTC(), now,
		)
		if err != nil {
			return mapErr(err)
		}
		p.ID, _ = res.LastInsertId()
		p.CreatedAt = now
		stored, created = p, true
		return nil
	})
	if err != nil {
		return domain.Payment{}, false, err
	}
	return stored, created, nil
}

func (r *Repo) ListPayments(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, listPaymentsSQL, bookingID); err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

func (r *Repo) ListPaymentsReceived(ctx context.Context, day time.Time, method domain.PaymentMethod) ([]domain.Payment, error) {
	from := domain.Day(day)
	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, listPaymentsReceivedSQL, string(method), from, from.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

func paymentsToDomain(rows []paymentRow) []domain.Payment {
	out := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

// ---- check-in ----

func (r *Repo) UpsertCheckin(ctx context.Context, c domain.OnlineCheckin) error {
	guests, err := encodeCompanions(c.AdditionalGuests)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertCheckinSQL,
		c.BookingID, c.Status, string(c.DocumentType), c.DocumentNumber, c.Nationality,
		dayArg(c.DateOfBirth), c.Address, c.ArrivalTime, guests, c.TermsAccepted, c.SubmittedAt.UTC(),
	)
	return mapErr(err)
}

func (r *Repo) GetCheckin(ctx context.Context, bookingID int64) (domain.OnlineCheckin, error) {
	var row checkinRow
	if err := r.db.GetContext(ctx, &row, getCheckinSQL, bookingID); err != nil {
		return domain.OnlineCheckin{}, mapErr(err)
	}
	c, err := row.toDomain()
	if err != nil {
		return domain.OnlineCheckin{}, fmt.Errorf("decode additional guests: %w", err)
	}
	return c, nil
}

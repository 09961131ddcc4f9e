// Package mysql is the MySQL-backed domain.Store.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"venue_hotel/internal/domain"
)

const (
	errDuplicateKey = 1062
	errNoReferenced = 1452

	overrideBatch = 500
)

type Repo struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Repo { return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }} }

// Open connects with pool settings suited to the API and syncer.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// withTx runs fn in a transaction, rolling back on error or panic.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w; rollback: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// mapErr turns driver and sql errors into domain sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateKey:
			return fmt.Errorf("%w: %s", domain.ErrConflict, me.Message)
		case errNoReferenced:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, me.Message)
		}
	}
	return err
}

// casResult resolves a zero-row conditional update into NotFound or Conflict.
func (r *Repo) casResult(ctx context.Context, res sql.Result, table string, id int64) error {
	return r.zeroRows(ctx, res, table, id, domain.ErrConflict)
}

// updateResult resolves a zero-row plain update: the row is either missing or unchanged.
func (r *Repo) updateResult(ctx context.Context, res sql.Result, table string, id int64) error {
	return r.zeroRows(ctx, res, table, id, nil)
}

func (r *Repo) zeroRows(ctx context.Context, res sql.Result, table string, id int64, exists error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.db.GetContext(ctx, &one, "SELECT 1 FROM "+table+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return exists
}

func dayArg(t time.Time) string { return domain.DayKey(t) }

// ---- rooms ----

func (r *Repo) CreateRoom(ctx context.Context, rm domain.Room) (domain.Room, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertRoomSQL,
		rm.Code, rm.Name, rm.Capacity, rm.Units, rm.BasePrice, rm.Active, now, now)
	if err != nil {
		return domain.Room{}, mapErr(err)
	}
	rm.ID, _ = res.LastInsertId()
	rm.CreatedAt, rm.UpdatedAt = now, now
	return rm, nil
}

func (r *Repo) UpdateRoom(ctx context.Context, rm domain.Room) error {
	res, err := r.db.ExecContext(ctx, updateRoomSQL,
		rm.Code, rm.Name, rm.Capacity, rm.Units, rm.BasePrice, rm.Active, r.now(), rm.ID)
	if err != nil {
		return mapErr(err)
	}
	return r.updateResult(ctx, res, "rooms", rm.ID)
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	var row roomRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+roomCols+" FROM rooms WHERE id = ?", id); err != nil {
		return domain.Room{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (r *Repo) ListRooms(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	q := "SELECT " + roomCols + " FROM rooms"
	if activeOnly {
		q += " WHERE active = 1"
	}
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows, q+" ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]domain.Room, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ---- rate policies ----

func (r *Repo) CreatePolicy(ctx context.Context, p domain.RatePolicy) (domain.RatePolicy, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertPolicySQL,
		p.Code, p.Name, p.Refundable, p.CancellationDays, p.PrepayPercent, p.MarkupPercent, p.Active, now, now)
	if err != nil {
		return domain.RatePolicy{}, mapErr(err)
	}
	p.ID, _ = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = now, now
	return p, nil
}

func (r *Repo) UpdatePolicy(ctx context.Context, p domain.RatePolicy) error {
	res, err := r.db.ExecContext(ctx, updatePolicySQL,
		p.Code, p.Name, p.Refundable, p.CancellationDays, p.PrepayPercent, p.MarkupPercent, p.Active, r.now(), p.ID)
	if err != nil {
		return mapErr(err)
	}
	return r.updateResult(ctx, res, "rate_policies", p.ID)
}

func (r *Repo) GetPolicy(ctx context.Context, id int64) (domain.RatePolicy, error) {
	var row policyRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+policyCols+" FROM rate_policies WHERE id = ?", id); err != nil {
		return domain.RatePolicy{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (r *Repo) ListPolicies(ctx context.Context) ([]domain.RatePolicy, error) {
	var rows []policyRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+policyCols+" FROM rate_policies ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]domain.RatePolicy, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repo) AttachPolicy(ctx context.Context, a domain.PolicyAssignment) (domain.PolicyAssignment, error) {
	res, err := r.db.ExecContext(ctx, insertAssignmentSQL, a.RoomID, a.PolicyID, dayArg(a.From), dayArg(a.To))
	if err != nil {
		return domain.PolicyAssignment{}, mapErr(err)
	}
	a.ID, _ = res.LastInsertId()
	return a, nil
}

func (r *Repo) ListAssignments(ctx context.Context, roomID int64) ([]domain.PolicyAssignment, error) {
	var rows []assignmentRow
	if err := r.db.SelectContext(ctx, &rows, listAssignmentsSQL, roomID); err != nil {
		return nil, err
	}
	out := make([]domain.PolicyAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// UpsertPriceOverrides writes overrides in multi-row batches inside one transaction.
func (r *Repo) UpsertPriceOverrides(ctx context.Context, os []domain.PriceOverride) error {
	if len(os) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(os); start += overrideBatch {
			end := min(start+overrideBatch, len(os))
			chunk := os[start:end]

			var sb strings.Builder
			sb.WriteString(insertOverridesPrefix)
			args := make([]any, 0, len(chunk)*5)
			for i, o := range chunk {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString("(?, ?, ?, ?, ?)")
				args = append(args, o.RoomID, dayArg(o.Day), o.Price, o.MinStay, o.Closed)
			}
			sb.WriteString(insertOverridesOnDup)
			if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

func (r *Repo) ListPriceOverrides(ctx context.Context, roomID int64, dr domain.DateRange) ([]domain.PriceOverride, error) {
	var rows []overrideRow
	if err := r.db.SelectContext(ctx, &rows, listOverridesSQL, roomID, dayArg(dr.From), dayArg(dr.To)); err != nil {
		return nil, err
	}
	out := make([]domain.PriceOverride, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

var _ domain.Store = (*Repo)(nil)

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"venue_hotel/internal/domain"
)

// ---- cash deposits ----

func (r *Repo) CreateDeposit(ctx context.Context, d domain.CashDeposit) (domain.CashDeposit, error) {
	now := r.now()
	d.BusinessDate = domain.Day(d.BusinessDate)
	res, err := r.db.ExecContext(ctx, insertDepositSQL,
		dayArg(d.BusinessDate), d.Expected, valDec(d.Counted), valDec(d.Discrepancy), string(d.Status),
		d.SubmittedBy, d.ReviewedBy, d.Note, d.RejectReason, valTime(d.SubmittedAt), valTime(d.ReviewedAt), now, now,
	)
	if err != nil {
		return domain.CashDeposit{}, mapErr(err)
	}
	d.ID, _ = res.LastInsertId()
	d.CreatedAt, d.UpdatedAt = now, now
	return d, nil
}

func (r *Repo) UpdateDeposit(ctx context.Context, d domain.CashDeposit, from domain.CashStatus) error {
	res, err := r.db.ExecContext(ctx, updateDepositSQL,
		d.Expected, valDec(d.Counted), valDec(d.Discrepancy), string(d.Status), d.SubmittedBy, d.ReviewedBy,
		d.Note, d.RejectReason, valTime(d.SubmittedAt), valTime(d.ReviewedAt), r.now(), d.ID, string(from),
	)
	if err != nil {
		return err
	}
	return r.casResult(ctx, res, "cash_deposits", d.ID)
}

func (r *Repo) GetDeposit(ctx context.Context, id int64) (domain.CashDeposit, error) {
	var row depositRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+depositCols+" FROM cash_deposits WHERE id = ?", id); err != nil {
		return domain.CashDeposit{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (r *Repo) ListDeposits(ctx context.Context, q domain.CashQuery) ([]domain.CashDeposit, error) {
	var (
		where []string
		args  []any
	)
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.Range != nil {
		where = append(where, "business_date >= ? AND business_date < ?")
		args = append(args, dayArg(q.Range.From), dayArg(q.Range.To))
	}
	query := "SELECT " + depositCols + " FROM cash_deposits"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY business_date DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var rows []depositRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.CashDeposit, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ---- wedding proposals ----

func (r *Repo) CreateProposal(ctx context.Context, p domain.WeddingProposal) (domain.WeddingProposal, error) {
	items, err := encodeItems(p.Items)
	if err != nil {
		return domain.WeddingProposal{}, err
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertProposalSQL,
		p.Token, p.CoupleNames, p.Email, dayArg(p.EventDate), p.GuestCount, items, p.Total,
		p.DepositPercent, p.Deposit, dayArg(p.ValidUntil), string(p.Status), p.CoupleComment, now, now,
	)
	if err != nil {
		return domain.WeddingProposal{}, mapErr(err)
	}
	p.ID, _ = res.LastInsertId()
	p.CreatedAt, p.UpdatedAt = now, now
	return p, nil
}

func (r *Repo) UpdateProposal(ctx context.Context, p domain.WeddingProposal, from domain.ProposalStatus) error {
	items, err := encodeItems(p.Items)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateProposalSQL,
		p.CoupleNames, p.Email, dayArg(p.EventDate), p.GuestCount, items, p.Total, p.DepositPercent,
		p.Deposit, dayArg(p.ValidUntil), string(p.Status), p.CoupleComment, r.now(), p.ID, string(from),
	)
	if err != nil {
		return err
	}
	return r.casResult(ctx, res, "wedding_proposals", p.ID)
}

func (r *Repo) getProposal(ctx context.Context, where string, arg any) (domain.WeddingProposal, error) {
	var row proposalRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+proposalCols+" FROM wedding_proposals WHERE "+where, arg); err != nil {
		return domain.WeddingProposal{}, mapErr(err)
	}
	return row.toDomain()
}

func (r *Repo) GetProposal(ctx context.Context, id int64) (domain.WeddingProposal, error) {
	return r.getProposal(ctx, "id = ?", id)
}

func (r *Repo) GetProposalByToken(ctx context.Context, token string) (domain.WeddingProposal, error) {
	return r.getProposal(ctx, "token = ?", token)
}

func (r *Repo) ListProposals(ctx context.Context, q domain.ProposalQuery) ([]domain.WeddingProposal, error) {
	query := "SELECT " + proposalCols + " FROM wedding_proposals"
	var args []any
	if q.Status != nil {
		query += " WHERE status = ?"
		args = append(args, string(*q.Status))
	}
	query += " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	var rows []proposalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.WeddingProposal, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ---- channel ----

func (r *Repo) CreateMapping(ctx context.Context, m domain.RoomMapping) (domain.RoomMapping, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx, insertMappingSQL, m.RoomID, m.Beds24PropertyID, m.Beds24RoomID, m.Active, now)
	if err != nil {
		return domain.RoomMapping{}, mapErr(err)
	}
	m.ID, _ = res.LastInsertId()
	m.CreatedAt = now
	return m, nil
}

func (r *Repo) DeleteMapping(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM room_mappings WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) getMapping(ctx context.Context, where string, arg any) (domain.RoomMapping, error) {
	var row mappingRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+mappingCols+" FROM room_mappings WHERE "+where, arg); err != nil {
		return domain.RoomMapping{}, mapErr(err)
	}
	return row.toDomain(), nil
}

func (r *Repo) GetMappingByRoom(ctx context.Context, roomID int64) (domain.RoomMapping, error) {
	return r.getMapping(ctx, "room_id = ?", roomID)
}

func (r *Repo) GetMappingByBeds24Room(ctx context.Context, beds24RoomID int64) (domain.RoomMapping, error) {
	return r.getMapping(ctx, "beds24_room_id = ?", beds24RoomID)
}

func (r *Repo) ListMappings(ctx context.Context, activeOnly bool) ([]domain.RoomMapping, error) {
	q := "SELECT " + mappingCols + " FROM room_mappings"
	if activeOnly {
		q += " WHERE active = 1"
	}
	var rows []mappingRow
	if err := r.db.SelectContext(ctx, &rows, q+" ORDER BY id"); err != nil {
		return nil, err
	}
	out := make([]domain.RoomMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repo) RecordSync(ctx context.Context, l domain.SyncLog) error {
	var from, to any
	if l.From != nil {
		from = dayArg(*l.From)
	}
	if l.To != nil {
		to = dayArg(*l.To)
	}
	_, err := r.db.ExecContext(ctx, insertSyncLogSQL, string(l.Direction), valInt64(l.RoomID), from, to, l.OK, l.Detail, r.now())
	return err
}

func (r *Repo) ListSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	var rows []syncLogRow
	if err := r.db.SelectContext(ctx, &rows, listSyncLogsSQL, limit); err != nil {
		return nil, err
	}
	out := make([]domain.SyncLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *Repo) GetSyncCursor(ctx context.Context, name string) (time.Time, bool, error) {
	var at time.Time
	err := r.db.GetContext(ctx, &at, "SELECT at FROM sync_cursors WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at.UTC(), true, nil
}

func (r *Repo) SetSyncCursor(ctx context.Context, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertCursorSQL, name, at.UTC())
	return err
}

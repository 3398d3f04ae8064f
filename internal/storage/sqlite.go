package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chitfund/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a local SQLite database. Timestamps
// are stored as unix seconds; nullable columns (lifted_date, payment_date,
// lifted_member_id) map to the zero value in the domain model.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateChitty(ctx context.Context, chitty *core.Chitty, members []*core.Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chitties (id, name, amount_cents, total_members, total_months,
			regular_cents, lifted_cents, start_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chitty.ID, chitty.Name, chitty.Amount.Cents, chitty.TotalMembers, chitty.TotalMonths,
		chitty.RegularPayment.Cents, chitty.LiftedPayment.Cents,
		chitty.StartDate.Unix(), chitty.CreatedAt.Unix(), chitty.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert chitty: %w", err)
	}

	for _, m := range members {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO members (id, chitty_id, name, position, has_lifted,
				lifted_month, lifted_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, 0, 0, NULL, ?, ?)`,
			m.ID, m.ChittyID, m.Name, m.Position, m.CreatedAt.Unix(), m.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chitty: %w", err)
	}

	slog.InfoContext(ctx, "Chitty saved to SQLite",
		"chitty_id", chitty.ID,
		"name", chitty.Name,
		"members", len(members))
	return nil
}

func (r *SQLiteRepository) GetChitty(ctx context.Context, id string) (*core.Chitty, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, amount_cents, total_members, total_months,
			regular_cents, lifted_cents, start_date, created_at, updated_at
		FROM chitties WHERE id = ?`, id)

	var c core.Chitty
	var startDate, createdAt, updatedAt int64
	err := row.Scan(&c.ID, &c.Name, &c.Amount.Cents, &c.TotalMembers, &c.TotalMonths,
		&c.RegularPayment.Cents, &c.LiftedPayment.Cents, &startDate, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chitty %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get chitty: %w", err)
	}
	c.StartDate = time.Unix(startDate, 0).UTC()
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM members WHERE chitty_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get chitty member ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		c.MemberIDs = append(c.MemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member ids: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) ListChitties(ctx context.Context) ([]core.Chitty, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM chitties ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list chitties: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chitty id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chitties: %w", err)
	}

	chitties := make([]core.Chitty, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetChitty(ctx, id)
		if err != nil {
			return nil, err
		}
		chitties = append(chitties, *c)
	}
	return chitties, nil
}

func scanMember(row interface{ Scan(...any) error }) (core.Member, error) {
	var m core.Member
	var hasLifted int
	var liftedDate sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&m.ID, &m.ChittyID, &m.Name, &m.Position, &hasLifted,
		&m.LiftedMonth, &liftedDate, &createdAt, &updatedAt)
	if err != nil {
		return core.Member{}, err
	}
	m.HasLifted = hasLifted != 0
	if liftedDate.Valid {
		m.LiftedDate = time.Unix(liftedDate.Int64, 0).UTC()
	}
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return m, nil
}

const memberColumns = `id, chitty_id, name, position, has_lifted, lifted_month, lifted_date, created_at, updated_at`

func (r *SQLiteRepository) ListMembers(ctx context.Context, chittyID string) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE chitty_id = ? ORDER BY position`, chittyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (*core.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return &m, nil
}

func (r *SQLiteRepository) CreateSlip(ctx context.Context, slip *core.MonthlySlip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO monthly_slips (id, chitty_id, month, slip_date, lifted_member_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, ?)`,
		slip.ID, slip.ChittyID, slip.Month, slip.SlipDate.Unix(),
		slip.CreatedAt.Unix(), slip.UpdatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("slip for chitty %s month %d already exists: %w",
				slip.ChittyID, slip.Month, core.ErrConflict)
		}
		return fmt.Errorf("insert slip: %w", err)
	}

	for i, rec := range slip.Records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_records (slip_id, member_id, member_name, amount_cents,
				paid, payment_date, lifted, position)
			VALUES (?, ?, ?, ?, 0, NULL, ?, ?)`,
			slip.ID, rec.MemberID, rec.MemberName, rec.Amount.Cents, boolToInt(rec.Lifted), i)
		if err != nil {
			return fmt.Errorf("insert payment record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit slip: %w", err)
	}

	slog.InfoContext(ctx, "Slip saved to SQLite",
		"slip_id", slip.ID,
		"chitty_id", slip.ChittyID,
		"month", slip.Month,
		"records", len(slip.Records))
	return nil
}

func (r *SQLiteRepository) GetSlip(ctx context.Context, id string) (*core.MonthlySlip, error) {
	return r.getSlip(ctx, `id = ?`, id)
}

func (r *SQLiteRepository) GetSlipByMonth(ctx context.Context, chittyID string, month int) (*core.MonthlySlip, error) {
	return r.getSlip(ctx, `chitty_id = ? AND month = ?`, chittyID, month)
}

func (r *SQLiteRepository) getSlip(ctx context.Context, where string, args ...any) (*core.MonthlySlip, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chitty_id, month, slip_date, lifted_member_id, created_at, updated_at
		FROM monthly_slips WHERE `+where, args...)

	var s core.MonthlySlip
	var liftedMemberID sql.NullString
	var slipDate, createdAt, updatedAt int64
	err := row.Scan(&s.ID, &s.ChittyID, &s.Month, &slipDate, &liftedMemberID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slip: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get slip: %w", err)
	}
	s.SlipDate = time.Unix(slipDate, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if liftedMemberID.Valid {
		s.LiftedMemberID = liftedMemberID.String
	}

	records, err := r.slipRecords(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Records = records
	return &s, nil
}

func (r *SQLiteRepository) slipRecords(ctx context.Context, slipID string) ([]core.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_id, member_name, amount_cents, paid, payment_date, lifted
		FROM payment_records WHERE slip_id = ? ORDER BY position`, slipID)
	if err != nil {
		return nil, fmt.Errorf("get payment records: %w", err)
	}
	defer rows.Close()

	var records []core.PaymentRecord
	for rows.Next() {
		var rec core.PaymentRecord
		var paid, lifted int
		var paymentDate sql.NullInt64
		if err := rows.Scan(&rec.MemberID, &rec.MemberName, &rec.Amount.Cents,
			&paid, &paymentDate, &lifted); err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		rec.Paid = paid != 0
		rec.Lifted = lifted != 0
		if paymentDate.Valid {
			rec.PaymentDate = time.Unix(paymentDate.Int64, 0).UTC()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment records: %w", err)
	}
	return records, nil
}

func (r *SQLiteRepository) ListSlips(ctx context.Context, chittyID string) ([]core.MonthlySlip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM monthly_slips WHERE chitty_id = ? ORDER BY month`, chittyID)
	if err != nil {
		return nil, fmt.Errorf("list slips: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan slip id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slips: %w", err)
	}

	slips := make([]core.MonthlySlip, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetSlip(ctx, id)
		if err != nil {
			return nil, err
		}
		slips = append(slips, *s)
	}
	return slips, nil
}

func (r *SQLiteRepository) ApplyLift(ctx context.Context, slipID, memberID string, month int, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE members SET has_lifted = 1, lifted_month = ?, lifted_date = ?, updated_at = ?
		WHERE id = ?`, month, at.Unix(), at.Unix(), memberID)
	if err != nil {
		return fmt.Errorf("mark member lifted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", memberID, core.ErrNotFound)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE monthly_slips SET lifted_member_id = ?, updated_at = ? WHERE id = ?`,
		memberID, at.Unix(), slipID)
	if err != nil {
		return fmt.Errorf("set slip lifted member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("slip %s: %w", slipID, core.ErrNotFound)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE payment_records SET lifted = 1 WHERE slip_id = ? AND member_id = ?`,
		slipID, memberID)
	if err != nil {
		return fmt.Errorf("flag lift record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record for member %s on slip %s: %w", memberID, slipID, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lift: %w", err)
	}

	slog.InfoContext(ctx, "Lift recorded",
		"slip_id", slipID,
		"member_id", memberID,
		"month", month)
	return nil
}

func (r *SQLiteRepository) SetPaymentStatus(ctx context.Context, slipID, memberID string, paid bool, at time.Time) error {
	var paymentDate sql.NullInt64
	if paid {
		paymentDate = sql.NullInt64{Int64: at.Unix(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_records SET paid = ?, payment_date = ?
		WHERE slip_id = ? AND member_id = ?`,
		boolToInt(paid), paymentDate, slipID, memberID)
	if err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record for member %s on slip %s: %w", memberID, slipID, core.ErrNotFound)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE monthly_slips SET updated_at = ? WHERE id = ?`, at.Unix(), slipID)
	if err != nil {
		return fmt.Errorf("touch slip: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceSlipRecords(ctx context.Context, slip *core.MonthlySlip) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM payment_records WHERE slip_id = ?`, slip.ID); err != nil {
		return fmt.Errorf("clear payment records: %w", err)
	}

	for i, rec := range slip.Records {
		var paymentDate sql.NullInt64
		if !rec.PaymentDate.IsZero() {
			paymentDate = sql.NullInt64{Int64: rec.PaymentDate.Unix(), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_records (slip_id, member_id, member_name, amount_cents,
				paid, payment_date, lifted, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			slip.ID, rec.MemberID, rec.MemberName, rec.Amount.Cents,
			boolToInt(rec.Paid), paymentDate, boolToInt(rec.Lifted), i)
		if err != nil {
			return fmt.Errorf("insert payment record: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE monthly_slips SET updated_at = ? WHERE id = ?`,
		slip.UpdatedAt.Unix(), slip.ID)
	if err != nil {
		return fmt.Errorf("touch slip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("slip %s: %w", slip.ID, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record replacement: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) OutstandingBalance(ctx context.Context, chittyID string) (core.Money, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(pr.amount_cents), 0)
		FROM payment_records pr
		JOIN monthly_slips s ON s.id = pr.slip_id
		WHERE s.chitty_id = ? AND pr.paid = 0`, chittyID)

	var cents int64
	if err := row.Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("outstanding balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

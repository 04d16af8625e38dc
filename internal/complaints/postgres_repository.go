package complaints

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// complaintsDB is the subset of pgxpool.Pool the repository needs.
type complaintsDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores complaints in the relational database.
type PostgresRepository struct {
	db complaintsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("complaints: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db complaintsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new row with status Pending.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateComplaintRequest) (*Complaint, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO complaints (id, user_id, title, description, category, area, urgency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id.String(),
		req.UserID,
		req.Title,
		req.Description,
		req.Category,
		req.Area,
		req.Urgency,
		StatusPending,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("complaints: insert failed: %w", err)
	}

	return &Complaint{
		ID:          id.String(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Area:        req.Area,
		Urgency:     req.Urgency,
		Status:      StatusPending,
		CreatedAt:   createdAt,
	}, nil
}

const selectColumns = `id, user_id, title, description, category, area, urgency, status, COALESCE(reference_id, ''), created_at`

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Area,
		&c.Urgency,
		&c.Status,
		&c.ReferenceID,
		&c.CreatedAt,
	)
	return &c, err
}

// GetByID fetches a single complaint.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Complaint, error) {
	query := `SELECT ` + selectColumns + ` FROM complaints WHERE id = $1`
	c, err := scanComplaint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrComplaintNotFound
		}
		return nil, fmt.Errorf("complaints: select failed: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's complaints, newest first. limit <= 0 returns all.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*Complaint, error) {
	query := `SELECT ` + selectColumns + ` FROM complaints WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("complaints: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("complaints: scan failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("complaints: list failed: %w", err)
	}
	return out, nil
}

// AttachSubmission records the external reference and marks the complaint Submitted.
func (r *PostgresRepository) AttachSubmission(ctx context.Context, id, referenceID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE complaints SET reference_id = $2, status = $3 WHERE id = $1`,
		id, referenceID, StatusSubmitted,
	)
	if err != nil {
		return fmt.Errorf("complaints: attach submission failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

// SetStatus changes a complaint's status.
func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	tag, err := r.db.Exec(ctx, `UPDATE complaints SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("complaints: set status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

// Stats counts the user's complaints by status in one pass.
func (r *PostgresRepository) Stats(ctx context.Context, userID string) (Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4)
		FROM complaints
		WHERE user_id = $1
	`
	var s Stats
	if err := r.db.QueryRow(ctx, query, userID, StatusInProgress, StatusResolved, StatusEscalated).
		Scan(&s.Total, &s.InProgress, &s.Resolved, &s.Escalated); err != nil {
		return Stats{}, fmt.Errorf("complaints: stats failed: %w", err)
	}
	return s, nil
}

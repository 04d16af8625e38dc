package complaints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DashboardLimit is how many recent complaints the dashboard shows.
const DashboardLimit = 3

// DashboardComplaint is the summary row shown on the dashboard.
type DashboardComplaint struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard is a citizen's landing view.
type Dashboard struct {
	UserName   string               `json:"user_name"`
	Complaints []DashboardComplaint `json:"complaints"`
	Stats      Stats                `json:"stats"`
}

// DashboardReader builds dashboards.
type DashboardReader interface {
	Dashboard(ctx context.Context, userID string) (*Dashboard, error)
}

// SQLDashboard reads dashboards straight from the database.
type SQLDashboard struct {
	db *sql.DB
}

// NewSQLDashboard wraps an open database handle.
func NewSQLDashboard(db *sql.DB) *SQLDashboard {
	return &SQLDashboard{db: db}
}

func (d *SQLDashboard) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	var out Dashboard
	if err := d.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = $1`, userID).Scan(&out.UserName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("complaints: dashboard user: %w", err)
	}

	statsQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4)
		FROM complaints
		WHERE user_id = $1
	`
	if err := d.db.QueryRowContext(ctx, statsQuery, userID, StatusInProgress, StatusResolved, StatusEscalated).
		Scan(&out.Stats.Total, &out.Stats.InProgress, &out.Stats.Resolved, &out.Stats.Escalated); err != nil {
		return nil, fmt.Errorf("complaints: dashboard stats: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, status, created_at
		FROM complaints
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, DashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("complaints: dashboard recent: %w", err)
	}
	defer rows.Close()

	out.Complaints = make([]DashboardComplaint, 0, DashboardLimit)
	for rows.Next() {
		var c DashboardComplaint
		if err := rows.Scan(&c.ID, &c.Title, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("complaints: dashboard scan: %w", err)
		}
		out.Complaints = append(out.Complaints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("complaints: dashboard recent: %w", err)
	}
	return &out, nil
}

// NameLookup resolves a user's display name; ok is false for unknown users.
type NameLookup func(ctx context.Context, userID string) (name string, ok bool, err error)

// RepositoryDashboard assembles dashboards from a Repository, for deployments
// without a SQL database.
type RepositoryDashboard struct {
	repo   Repository
	lookup NameLookup
}

// NewRepositoryDashboard builds a dashboard reader over repo.
func NewRepositoryDashboard(repo Repository, lookup NameLookup) *RepositoryDashboard {
	return &RepositoryDashboard{repo: repo, lookup: lookup}
}

func (d *RepositoryDashboard) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	name, ok, err := d.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOwnerNotFound
	}
	stats, err := d.repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := d.repo.ListByUser(ctx, userID, DashboardLimit)
	if err != nil {
		return nil, err
	}
	out := &Dashboard{UserName: name, Stats: stats, Complaints: make([]DashboardComplaint, 0, len(recent))}
	for _, c := range recent {
		out.Complaints = append(out.Complaints, DashboardComplaint{ID: c.ID, Title: c.Title, Status: c.Status, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

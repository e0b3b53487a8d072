package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"waypoint/internal/location/models"
	id "waypoint/pkg/domain"
)

const locationColumns = `id, user_id, latitude, longitude, created_at`

// PostgresStore persists check-ins in PostgreSQL. Postgres has no TTL index,
// so the cutoff is applied in every WHERE clause and the sweeper deletes the rest.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, loc *models.Location) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, user_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(loc.ID), uuid.UUID(loc.UserID), loc.Lat(), loc.Lon(), loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, q models.Query) ([]models.Location, error) {
	return s.list(ctx, q, `WHERE user_id = $1 AND created_at >= $2`, uuid.UUID(userID), q.Since)
}

func (s *PostgresStore) ListRecent(ctx context.Context, q models.Query) ([]models.Location, error) {
	return s.list(ctx, q, `WHERE created_at >= $1`, q.Since)
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID id.UserID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE user_id = $1 AND created_at >= $2`,
		uuid.UUID(userID), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count user locations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountRecent(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM locations WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge locations: %w", err)
	}
	return rowsAffected(res)
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM locations WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete user locations: %w", err)
	}
	return rowsAffected(res)
}

func (s *PostgresStore) list(ctx context.Context, q models.Query, where string, args ...any) ([]models.Location, error) {
	direction := "ASC"
	if q.Page.Desc {
		direction = "DESC"
	}
	args = append(args, q.Page.Limit, q.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM locations %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		locationColumns, where, pq.QuoteIdentifier("created_at"), direction, direction, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Location, 0, q.Page.Limit)
	for rows.Next() {
		var (
			l             models.Location
			rawID, userID uuid.UUID
		)
		if err := rows.Scan(&rawID, &userID, &l.Coordinates[0], &l.Coordinates[1], &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		l.ID = id.LocationID(rawID)
		l.UserID = id.UserID(userID)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"waypoint/internal/auth/models"
	"waypoint/internal/platform/postgres"
	id "waypoint/pkg/domain"
)

const userColumns = `id, name, email, password_hash, role, refresh_token, created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(user.ID), user.Name, user.Email, user.PasswordHash, string(user.Role),
		nullString(user.RefreshToken), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, password_hash = $4, updated_at = $5
		WHERE id = $1`,
		uuid.UUID(user.ID), user.Name, user.Email, user.PasswordHash, user.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res, user.ID)
}

// Delete removes the user; location rows go with it through ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res, userID)
}

func (s *PostgresStore) List(ctx context.Context, q models.ListUsersQuery) ([]*models.User, error) {
	where, args := listFilter(q)
	column, ok := sortColumns[q.Page.Sort]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.Page.Desc {
		direction = "DESC"
	}
	args = append(args, q.Page.Limit, q.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		userColumns, where, pq.QuoteIdentifier(column), direction, direction, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, q.Page.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) Count(ctx context.Context, q models.ListUsersQuery) (int, error) {
	where, args := listFilter(q)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) SetRefreshToken(ctx context.Context, userID id.UserID, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $2 WHERE id = $1`, uuid.UUID(userID), token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return expectOne(res, userID)
}

// SwapRefreshToken is a single conditional UPDATE, so of two concurrent
// callers presenting the same token exactly one matches the row.
func (s *PostgresStore) SwapRefreshToken(ctx context.Context, userID id.UserID, old, next string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = $3 WHERE id = $1 AND refresh_token = $2`,
		uuid.UUID(userID), old, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, userID); err != nil {
		return err
	}
	return fmt.Errorf("refresh token for user %s: %w", userID, ErrStale)
}

func (s *PostgresStore) ClearRefreshToken(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = NULL WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return expectOne(res, userID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u       models.User
		rawID   uuid.UUID
		role    string
		refresh sql.NullString
	)
	err := row.Scan(&rawID, &u.Name, &u.Email, &u.PasswordHash, &role, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Role = models.Role(role)
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return &u, nil
}

func listFilter(q models.ListUsersQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.Role != "" {
		args = append(args, string(q.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func expectOne(res sql.Result, userID id.UserID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

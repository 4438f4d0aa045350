package db

import (
	"context"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
)

// GetOrCreateUser returns the user for the email, creating the account on
// first login. The second return reports whether a new account was created.
func (s *DB) GetOrCreateUser(ctx context.Context, email, name, role string) (user *entity.User, created bool, err error) {
	ctx, span := s.startSpan(ctx, "GetOrCreateUser")
	defer func() { s.endSpan(span, err) }()

	query := `
		INSERT INTO users (email, name, role, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, role, created_at, (xmax = 0) AS created
	`

	var u entity.User
	err = s.conn.QueryRow(ctx, query, email, name, role).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &created)
	if err != nil {
		err = s.mapError(err)
		return nil, false, err
	}

	return &u, created, nil
}

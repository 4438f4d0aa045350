package usecase

import (
	"context"
	"log/slog"

	"github.com/schoolhub/schoolhub/internal/auth/entity"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
)

type SessionCheckOutput struct {
	Authenticated bool
	User          *entity.User
}

// SessionCheck reports whether the request carries a valid session. The route
// is reachable without a session, so a missing or invalid token is an
// unauthenticated result, not an error.
func (s *Usecase) SessionCheck(ctx context.Context) (*SessionCheckOutput, error) {
	_, span := s.startSpan(ctx, "SessionCheck")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return &SessionCheckOutput{Authenticated: false}, nil
	}

	return &SessionCheckOutput{
		Authenticated: true,
		User: &entity.User{
			ID:    clm.UserID,
			Email: clm.UserEmail,
			Role:  clm.UserRole,
		},
	}, nil
}

// SessionLogout ends the session. Tokens are stateless, so the server side
// only records the event; the transport layer expires the session cookie.
func (s *Usecase) SessionLogout(ctx context.Context) error {
	_, span := s.startSpan(ctx, "SessionLogout")
	defer span.End()

	if clm := jwt.GetAuth(ctx); clm != nil {
		slog.InfoContext(ctx, "user logged out", "user_id", clm.UserID)
	}

	return nil
}

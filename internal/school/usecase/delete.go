package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/shared/event"
)

type SchoolDeleteInput struct {
	ID int64 `validate:"required,gt=0"`
}

// SchoolDelete removes a school. Requires a role with the delete policy. The
// stored image is removed best-effort after the row is gone.
func (s *Usecase) SchoolDelete(ctx context.Context, in SchoolDeleteInput) error {
	ctx, span := s.startSpan(ctx, "SchoolDelete")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, "schools", "delete")
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	deleted, err := s.repoDB.DeleteSchool(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("School not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete school", "school_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	s.removeImage(ctx, deleted.ImageURL)

	s.publishChange(ctx, SchoolChangedEvent{
		Action:   event.SchoolActionDeleted,
		SchoolID: deleted.ID,
		Name:     deleted.Name,
		ActorID:  clm.UserID,
	})

	return nil
}

package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/school/entity"
)

type SchoolGetInput struct {
	ID int64 `validate:"required,gt=0"`
}

// SchoolGet returns a single school by id.
func (s *Usecase) SchoolGet(ctx context.Context, in SchoolGetInput) (*entity.School, error) {
	ctx, span := s.startSpan(ctx, "SchoolGet")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	school, err := s.repoDB.GetSchool(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("School not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get school", "school_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return school, nil
}

package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/shared/event"
	"github.com/schoolhub/schoolhub/internal/school/entity"
)

type SchoolUpdateInput struct {
	ID      int64  `validate:"required,gt=0"`
	Name    string `validate:"required,min=2,max=120"`
	Email   string `validate:"required,email"`
	Contact string `validate:"required,min=6,max=20"`
	Address string `validate:"required,max=255"`
	City    string `validate:"required,alphaspace,max=80"`
	State   string `validate:"required,alphaspace,max=80"`

	// Image is optional on update; nil keeps the current one.
	Image            io.Reader
	ImageContentType string
}

// SchoolUpdate edits a school. The creator may edit their own record; other
// accounts need a role with the update policy.
func (s *Usecase) SchoolUpdate(ctx context.Context, in SchoolUpdateInput) (*entity.School, error) {
	ctx, span := s.startSpan(ctx, "SchoolUpdate")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	current, err := s.repoDB.GetSchool(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("School not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get school", "school_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if current.CreatedBy != clm.UserID {
		if _, err := s.authenticatedAndAuthorized(ctx, "schools", "update"); err != nil {
			return nil, err
		}
	}

	next := entity.School{
		ID:       in.ID,
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Contact:  strings.TrimSpace(in.Contact),
		Address:  strings.TrimSpace(in.Address),
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		ImageURL: current.ImageURL,
	}

	if in.Image != nil {
		contentType := strings.ToLower(strings.TrimSpace(in.ImageContentType))
		ext, ok := imageContentTypeExt[contentType]
		if !ok {
			return nil, goerror.NewInvalidInput(nil, "image", "unsupported image content type")
		}

		key := "schools/" + sanitizeKeyPart(next.Name) + "-" + s.uuid.Generate() + ext
		imageURL, err := s.repoMedia.Upload(ctx, key, in.Image, contentType)
		if err != nil {
			slog.ErrorContext(ctx, "failed to upload school image", "school_id", in.ID, "error", err)
			return nil, goerror.NewServer(err)
		}

		next.ImageURL = imageURL
	}

	updated, err := s.repoDB.UpdateSchool(ctx, next)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("School not found", goerror.CodeNotFound)
	}
	if errors.Is(err, goerror.ErrConflict) {
		return nil, goerror.NewBusiness("A school with that email already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update school", "school_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if in.Image != nil && current.ImageURL != updated.ImageURL {
		s.removeImage(ctx, current.ImageURL)
	}

	s.publishChange(ctx, SchoolChangedEvent{
		Action:   event.SchoolActionUpdated,
		SchoolID: updated.ID,
		Name:     updated.Name,
		ActorID:  clm.UserID,
	})

	return updated, nil
}

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/sentinel"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Profile returns the public view of the user identified by a verified
// session subject. A valid token whose subject no longer exists (account
// deleted after issuance) yields not found.
func (s *Service) Profile(ctx context.Context, subjectID string) (*models.PublicUser, error) {
	userID, err := uuid.Parse(subjectID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session subject")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	public := user.Public()
	return &public, nil
}

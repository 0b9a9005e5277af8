package service

import (
	"github.com/google/uuid"

	dErrors "gatekeeper/pkg/domain-errors"
)

func (s *AuthServiceSuite) TestProfile() {
	result := s.registerAlice()

	s.Run("returns the public user for a session subject", func() {
		public, err := s.service.Profile(s.ctx, result.User.ID)
		s.Require().NoError(err)
		s.Equal("alice@example.com", public.Email)
		s.Equal("alice", public.Username)
	})

	s.Run("unknown subject yields not found", func() {
		_, err := s.service.Profile(s.ctx, uuid.NewString())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed subject is unauthorized", func() {
		_, err := s.service.Profile(s.ctx, "not-a-uuid")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

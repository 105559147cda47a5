package service

import (
	"context"
	"strings"

	"levelup-loyalty/internal/model"
)

type memberService struct {
	*views
}

// NewMemberService creates the membership service.
func NewMemberService(d Deps) MemberService {
	return &memberService{views: newViews(d, "member")}
}

// Register stores the user's email. Membership is granted when the email
// belongs to the configured institution domain.
func (s *memberService) Register(ctx context.Context, username, email string) (*model.Member, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}

	email = strings.TrimSpace(email)
	member := &model.Member{
		Username: username,
		Email:    email,
		IsMember: s.memberEmail(email),
	}

	if err := s.repos.Members.Upsert(ctx, member); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to register member")
		return nil, mapStoreError(err, nil)
	}

	s.logger.Info().Str("username", username).Bool("is_member", member.IsMember).Msg("member registered")

	// the member discount changes the cart totals
	s.publishCart(ctx, username)

	return member, nil
}

func (s *memberService) IsMember(ctx context.Context, username string) (bool, error) {
	return s.isMember(ctx, username)
}

func (s *memberService) memberEmail(email string) bool {
	domain := strings.TrimPrefix(strings.TrimSpace(s.loyalty.MemberEmailDomain), "@")
	if domain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain))
}

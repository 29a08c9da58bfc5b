package users

import (
	"context"

	"github.com/docsummarizer/go-services/internal/models"
)

type Service struct {
	repo UserRepository
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r}
}

// UpsertFromClaims creates or refreshes a user from identity token claims.
// Claims without a subject yield (nil, nil).
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	picture, _ := claims["picture"].(string)
	return s.repo.UpsertBySub(ctx, &models.User{Sub: sub, Email: email, Name: name, Picture: picture})
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}

package escalation

import "context"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, status Status) ([]Record, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) Resolve(ctx context.Context, id string) (Record, error) {
	return s.repo.Resolve(ctx, id)
}

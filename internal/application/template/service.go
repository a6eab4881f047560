package template

import (
	"context"
	"fmt"
	"time"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/id"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/validate"
	"github.com/DosAbicos/2tick-sub000/internal/placeholder"
)

// Service manages reusable document templates. Contracts snapshot a template
// at creation, so edits and deletes here never touch documents in flight.
type Service interface {
	Create(ctx context.Context, req domain.CreateTemplateRequest) (*domain.Template, error)
	Get(ctx context.Context, templateID string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
	Update(ctx context.Context, templateID string, req domain.UpdateTemplateRequest) (*domain.Template, error)
	Delete(ctx context.Context, templateID string) error
}

type templateStore interface {
	Put(ctx context.Context, t *domain.Template) error
	Get(ctx context.Context, templateID string) (*domain.Template, error)
	Update(ctx context.Context, templateID string, updates map[string]interface{}) error
	Scan(ctx context.Context) ([]domain.Template, error)
	HardDelete(ctx context.Context, templateID string) error
}

type service struct {
	repo templateStore
	now  func() time.Time
}

func NewService(repo templateStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Create(ctx context.Context, req domain.CreateTemplateRequest) (*domain.Template, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	defs := req.Placeholders
	if defs == nil {
		defs = map[string]domain.Placeholder{}
	}
	if err := placeholder.ValidateDefinitions(defs, append([]string{req.Content}, mapValues(req.Translations)...)...); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &domain.Template{
		TemplateID:   id.New(),
		Name:         req.Name,
		Placeholders: defs,
		Content:      req.Content,
		Translations: req.Translations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	return s.repo.Get(ctx, templateID)
}

func (s *service) List(ctx context.Context) ([]domain.Template, error) {
	return s.repo.Scan(ctx)
}

// Update applies the provided fields, then revalidates the merged result so a
// partial update cannot leave the template internally inconsistent.
func (s *service) Update(ctx context.Context, templateID string, req domain.UpdateTemplateRequest) (*domain.Template, error) {
	t, err := s.repo.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("template name cannot be empty: %w", domain.ErrBadRequest)
		}
		t.Name = *req.Name
		updates["name"] = *req.Name
	}
	if req.Placeholders != nil {
		t.Placeholders = *req.Placeholders
		updates["placeholders"] = *req.Placeholders
	}
	if req.Content != nil {
		t.Content = *req.Content
		updates["content"] = *req.Content
	}
	if req.Translations != nil {
		t.Translations = *req.Translations
		updates["translations"] = *req.Translations
	}
	if len(updates) == 0 {
		return t, nil
	}

	if err := placeholder.ValidateDefinitions(t.Placeholders, append([]string{t.Content}, mapValues(t.Translations)...)...); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, templateID, updates); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now().UTC()
	return t, nil
}

func (s *service) Delete(ctx context.Context, templateID string) error {
	if _, err := s.repo.Get(ctx, templateID); err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, templateID)
}

func mapValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

type mockTemplateRepo struct{ mock.Mock }

func (m *mockTemplateRepo) Put(ctx context.Context, t *domain.Template) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockTemplateRepo) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Template), args.Error(1)
}

func (m *mockTemplateRepo) Update(ctx context.Context, templateID string, updates map[string]interface{}) error {
	args := m.Called(ctx, templateID, updates)
	return args.Error(0)
}

func (m *mockTemplateRepo) Scan(ctx context.Context) ([]domain.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Template), args.Error(1)
}

func (m *mockTemplateRepo) HardDelete(ctx context.Context, templateID string) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

func validRequest() domain.CreateTemplateRequest {
	return domain.CreateTemplateRequest{
		Name:    "Lease",
		Content: "Rent {{RENT}} for {{TOTAL_DAYS}} days, total {{TOTAL}}.",
		Placeholders: map[string]domain.Placeholder{
			"RENT":       {Label: "Rent per day", Type: domain.PlaceholderNumber, Owner: domain.OwnerCreator},
			"START_DATE": {Label: "Start", Type: domain.PlaceholderDate, Owner: domain.OwnerCreator},
			"END_DATE":   {Label: "End", Type: domain.PlaceholderDate, Owner: domain.OwnerCreator},
			"TOTAL_DAYS": {Label: "Days", Type: domain.PlaceholderCalculated, Owner: domain.OwnerCreator, Formula: &domain.Formula{
				Operand1:  "END_DATE",
				Operation: domain.OpDaysBetween,
				Operand2:  "START_DATE",
			}},
			"TOTAL": {Label: "Total", Type: domain.PlaceholderCalculated, Owner: domain.OwnerCreator, Formula: &domain.Formula{
				UseTextFormula: true,
				Text:           "TOTAL_DAYS * RENT",
			}},
		},
	}
}

func TestCreateValidTemplate(t *testing.T) {
	repo := new(mockTemplateRepo)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(tpl *domain.Template) bool {
		return tpl.Name == "Lease" && tpl.TemplateID != ""
	})).Return(nil)

	svc := NewService(repo)
	tpl, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, tpl.TemplateID)
	assert.False(t, tpl.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestCreateRejectsMissingName(t *testing.T) {
	req := validRequest()
	req.Name = ""

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreateRejectsUndefinedMarker(t *testing.T) {
	req := validRequest()
	req.Content = "Hello {{NOBODY}}"

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "NOBODY")
}

func TestCreateRejectsCalculatedWithoutFormula(t *testing.T) {
	req := validRequest()
	p := req.Placeholders["TOTAL"]
	p.Formula = nil
	req.Placeholders["TOTAL"] = p

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreateRejectsFormulaWithUnknownReference(t *testing.T) {
	req := validRequest()
	p := req.Placeholders["TOTAL"]
	p.Formula = &domain.Formula{UseTextFormula: true, Text: "GHOST * 2"}
	req.Placeholders["TOTAL"] = p

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "GHOST")
}

func TestCreateRejectsUnparsableTextFormula(t *testing.T) {
	req := validRequest()
	p := req.Placeholders["TOTAL"]
	p.Formula = &domain.Formula{UseTextFormula: true, Text: "RENT * * 2"}
	req.Placeholders["TOTAL"] = p

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreateValidatesTranslations(t *testing.T) {
	req := validRequest()
	req.Translations = map[string]string{"kk": "Баға {{PRICE_KZ}}"}

	svc := NewService(new(mockTemplateRepo))
	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "PRICE_KZ")
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	existing := &domain.Template{
		TemplateID:   "tpl1",
		Name:         "Lease",
		Content:      "Rent {{RENT}}.",
		Placeholders: map[string]domain.Placeholder{"RENT": {Type: domain.PlaceholderNumber, Owner: domain.OwnerCreator}},
	}
	repo := new(mockTemplateRepo)
	repo.On("Get", mock.Anything, "tpl1").Return(existing, nil)
	repo.On("Update", mock.Anything, "tpl1", mock.MatchedBy(func(u map[string]interface{}) bool {
		_, hasName := u["name"]
		_, hasContent := u["content"]
		return hasName && !hasContent
	})).Return(nil)

	name := "Lease v2"
	svc := NewService(repo)
	tpl, err := svc.Update(context.Background(), "tpl1", domain.UpdateTemplateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Lease v2", tpl.Name)
	repo.AssertExpectations(t)
}

func TestUpdateRevalidatesMergedResult(t *testing.T) {
	existing := &domain.Template{
		TemplateID:   "tpl1",
		Name:         "Lease",
		Content:      "Rent {{RENT}}.",
		Placeholders: map[string]domain.Placeholder{"RENT": {Type: domain.PlaceholderNumber, Owner: domain.OwnerCreator}},
	}
	repo := new(mockTemplateRepo)
	repo.On("Get", mock.Anything, "tpl1").Return(existing, nil)

	// New content references a key the existing placeholders do not define.
	content := "Rent {{RENT}} due {{DUE_DATE}}."
	svc := NewService(repo)
	_, err := svc.Update(context.Background(), "tpl1", domain.UpdateTemplateRequest{Content: &content})
	require.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateNoFieldsIsNoop(t *testing.T) {
	existing := &domain.Template{TemplateID: "tpl1", Name: "Lease"}
	repo := new(mockTemplateRepo)
	repo.On("Get", mock.Anything, "tpl1").Return(existing, nil)

	svc := NewService(repo)
	tpl, err := svc.Update(context.Background(), "tpl1", domain.UpdateTemplateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Lease", tpl.Name)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMissingTemplate(t *testing.T) {
	repo := new(mockTemplateRepo)
	repo.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	svc := NewService(repo)
	err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

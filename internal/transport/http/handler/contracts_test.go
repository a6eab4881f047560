package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

// --- mocks ---

type mockContractSvc struct{ mock.Mock }

func (m *mockContractSvc) Create(ctx context.Context, req domain.CreateContractRequest) (*domain.Contract, error) {
	args := m.Called(ctx, req)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) Get(ctx context.Context, contractID string) (*domain.Contract, error) {
	args := m.Called(ctx, contractID)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) List(ctx context.Context, limit int32, cursor string) ([]domain.Contract, string, error) {
	args := m.Called(ctx, limit, cursor)
	if cs, _ := args.Get(0).([]domain.Contract); cs != nil {
		return cs, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *mockContractSvc) UpdateCreatorValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error) {
	args := m.Called(ctx, contractID, values)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) UpdateSignerValues(ctx context.Context, contractID string, values map[string]string) (*domain.Contract, error) {
	args := m.Called(ctx, contractID, values)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) Finalize(ctx context.Context, contractID string) (*domain.Contract, error) {
	args := m.Called(ctx, contractID)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) VerifySign(ctx context.Context, contractID, channel, code string) (*domain.SignatureArtifact, error) {
	args := m.Called(ctx, contractID, channel, code)
	if a, _ := args.Get(0).(*domain.SignatureArtifact); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) Approve(ctx context.Context, contractID string) (*domain.Contract, error) {
	args := m.Called(ctx, contractID)
	if c, _ := args.Get(0).(*domain.Contract); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContractSvc) ResolvedContent(ctx context.Context, contractID, viewer string) (string, error) {
	args := m.Called(ctx, contractID, viewer)
	return args.String(0), args.Error(1)
}

func (m *mockContractSvc) SnapshotLink(ctx context.Context, contractID string) (string, error) {
	args := m.Called(ctx, contractID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newContractRouter(svc *mockContractSvc) http.Handler {
	h := NewContractHandler(svc)
	r := chi.NewRouter()
	r.Post("/contracts", h.Create)
	r.Get("/contracts/{id}", h.Get)
	r.Put("/contracts/{id}/values", h.UpdateValues)
	r.Put("/contracts/{id}/signer-values", h.UpdateSignerValues)
	r.Post("/contracts/{id}/finalize", h.Finalize)
	r.Post("/contracts/{id}/approve", h.Approve)
	r.Get("/contracts/{id}/signer-view", h.SignerContent)
	r.Get("/contracts/{id}/snapshot", h.Snapshot)
	return r
}

// --- tests ---

func TestContractCreate(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req domain.CreateContractRequest) bool {
		return req.TemplateID == "tpl1"
	})).Return(&domain.Contract{ContractID: "c1", Status: domain.StatusDraft}, nil)

	body, _ := json.Marshal(domain.CreateContractRequest{TemplateID: "tpl1"})
	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var env ContractEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "c1", env.Contract.ContractID)
}

func TestContractCreateBadBody(t *testing.T) {
	svc := new(mockContractSvc)
	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestContractGetNotFound(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/contracts/missing", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContractFinalizeConflict(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("Finalize", mock.Anything, "c1").Return(nil, domain.ErrInvalidTransition)

	req := httptest.NewRequest(http.MethodPost, "/contracts/c1/finalize", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestContractSignerValuesOwnershipViolation(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("UpdateSignerValues", mock.Anything, "c1", map[string]string{"RENT": "0"}).
		Return(nil, domain.ErrOwnershipViolation)

	body, _ := json.Marshal(domain.UpdateValuesRequest{Values: map[string]string{"RENT": "0"}})
	req := httptest.NewRequest(http.MethodPut, "/contracts/c1/signer-values", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestContractSignerValuesMissingValues(t *testing.T) {
	svc := new(mockContractSvc)

	req := httptest.NewRequest(http.MethodPut, "/contracts/c1/signer-values", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "UpdateSignerValues", mock.Anything, mock.Anything, mock.Anything)
}

func TestContractSignerView(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("ResolvedContent", mock.Anything, "c1", domain.OwnerSigner).
		Return("Lease between {{LANDLORD_NAME}} and Bolat.", nil)

	req := httptest.NewRequest(http.MethodGet, "/contracts/c1/signer-view", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env ContentEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Contains(t, env.Content, "{{LANDLORD_NAME}}")
}

func TestContractSnapshotLink(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("SnapshotLink", mock.Anything, "c1").
		Return("https://s3.example.com/contracts/c1/signed.txt?X-Amz-Signature=abc", nil)

	req := httptest.NewRequest(http.MethodGet, "/contracts/c1/snapshot", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env SnapshotEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Contains(t, env.URL, "X-Amz-Signature")
}

func TestContractSnapshotLinkNotArchived(t *testing.T) {
	svc := new(mockContractSvc)
	svc.On("SnapshotLink", mock.Anything, "c1").Return("", domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/contracts/c1/snapshot", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContractApprove(t *testing.T) {
	now := time.Now().UTC()
	svc := new(mockContractSvc)
	svc.On("Approve", mock.Anything, "c1").Return(&domain.Contract{
		ContractID:       "c1",
		Status:           domain.StatusSigned,
		CreatorSignature: domain.NewSignatureArtifact("c1", "approval", now, "CT-1"),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/contracts/c1/approve", nil)
	rr := httptest.NewRecorder()
	newContractRouter(svc).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env ContractEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, domain.StatusSigned, env.Contract.Status)
}

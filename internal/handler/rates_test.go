package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"floatbook/internal/commission"
	"floatbook/internal/domain"
	"floatbook/internal/middleware"
	"floatbook/pkg/logger"
	"floatbook/pkg/validator"
)

type mockRateRepo struct {
	mock.Mock
}

func (m *mockRateRepo) ActiveRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	args := m.Called(ctx, networkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommissionRate), args.Error(1)
}

func (m *mockRateRepo) ActiveAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	args := m.Called(ctx, kioskID, networkID, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentCommissionRate), args.Error(1)
}

func (m *mockRateRepo) ListRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	args := m.Called(ctx, networkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommissionRate), args.Error(1)
}

func (m *mockRateRepo) CreateRate(ctx context.Context, rate *domain.CommissionRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *mockRateRepo) UpdateRate(ctx context.Context, rate *domain.CommissionRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *mockRateRepo) FindRateByID(ctx context.Context, id uuid.UUID) (*domain.CommissionRate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionRate), args.Error(1)
}

func (m *mockRateRepo) ListAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	args := m.Called(ctx, kioskID, networkID, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AgentCommissionRate), args.Error(1)
}

func (m *mockRateRepo) UpsertAgentRate(ctx context.Context, rate *domain.AgentCommissionRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *mockRateRepo) FindAgentRateByID(ctx context.Context, id uuid.UUID) (*domain.AgentCommissionRate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentCommissionRate), args.Error(1)
}

func (m *mockRateRepo) DeactivateAgentRate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newRateHandler(repo commission.Repository, adminEmails []string) *RateHandler {
	svc := commission.NewService(repo, nil, logger.NewNop())
	return NewRateHandler(svc, nil, nil, adminEmails, validator.New(), logger.NewNop())
}

func authedRequest(method, target, body, email string, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = mux.SetURLVars(req, vars)
	if email != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), uuid.New(), email))
	}
	return req
}

func TestCreateNetworkRateRejectsNonAdmin(t *testing.T) {
	repo := new(mockRateRepo)
	h := newRateHandler(repo, []string{"boss@example.com"})

	networkID := uuid.New()
	req := authedRequest(http.MethodPost, "/networks/"+networkID.String()+"/rates",
		`{"min_amount":"100","max_amount":"5000","rate_kind":"FIXED","rate_value":"50"}`,
		"agent@example.com", map[string]string{"networkID": networkID.String()})
	w := httptest.NewRecorder()
	h.CreateNetworkRate(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	repo.AssertNotCalled(t, "CreateRate", mock.Anything, mock.Anything)
}

func TestCreateNetworkRateRejectsMissingIdentity(t *testing.T) {
	repo := new(mockRateRepo)
	h := newRateHandler(repo, []string{"boss@example.com"})

	networkID := uuid.New()
	req := authedRequest(http.MethodPost, "/networks/"+networkID.String()+"/rates",
		`{"min_amount":"100","max_amount":"5000","rate_kind":"FIXED","rate_value":"50"}`,
		"", map[string]string{"networkID": networkID.String()})
	w := httptest.NewRecorder()
	h.CreateNetworkRate(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateNetworkRateAsAdmin(t *testing.T) {
	repo := new(mockRateRepo)
	repo.On("CreateRate", mock.Anything, mock.Anything).Return(nil)
	h := newRateHandler(repo, []string{"boss@example.com"})

	networkID := uuid.New()
	// The admin list match is case-insensitive.
	req := authedRequest(http.MethodPost, "/networks/"+networkID.String()+"/rates",
		`{"min_amount":"100","max_amount":"5000","rate_kind":"FIXED","rate_value":"50"}`,
		"Boss@Example.com", map[string]string{"networkID": networkID.String()})
	w := httptest.NewRecorder()
	h.CreateNetworkRate(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertCalled(t, "CreateRate", mock.Anything, mock.Anything)

	created := repo.Calls[0].Arguments.Get(1).(*domain.CommissionRate)
	assert.Equal(t, networkID, created.NetworkID)
	assert.True(t, created.IsActive)
}

func TestDeactivateNetworkRateAsAdmin(t *testing.T) {
	networkID := uuid.New()
	rateID := uuid.New()
	repo := new(mockRateRepo)
	repo.On("FindRateByID", mock.Anything, rateID).Return(&domain.CommissionRate{
		ID:        rateID,
		NetworkID: networkID,
		IsActive:  true,
	}, nil)
	repo.On("UpdateRate", mock.Anything, mock.Anything).Return(nil)
	h := newRateHandler(repo, []string{"boss@example.com"})

	req := authedRequest(http.MethodDelete, "/networks/"+networkID.String()+"/rates/"+rateID.String(), "",
		"boss@example.com", map[string]string{"networkID": networkID.String(), "rateID": rateID.String()})
	w := httptest.NewRecorder()
	h.DeactivateNetworkRate(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	updated := repo.Calls[1].Arguments.Get(1).(*domain.CommissionRate)
	assert.False(t, updated.IsActive)
}

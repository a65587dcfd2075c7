package resolvefixture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledger-assistant/internal/common/config"
	apperrors "ledger-assistant/internal/common/errors"
	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/models"
)

type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) Resolve(ctx context.Context, key, phrase string) ([]models.Fixture, error) {
	args := m.Called(ctx, key, phrase)
	fx, _ := args.Get(0).([]models.Fixture)
	return fx, args.Error(1)
}

var upcoming = []models.Fixture{
	{ID: "fx-1", HomeTeam: "Arsenal", AwayTeam: "Tottenham", Date: "2026-11-01T15:00:00Z", League: "Premier League"},
	{ID: "fx-2", HomeTeam: "Tottenham", AwayTeam: "Arsenal", Date: "2027-03-14T16:30:00Z", League: "Premier League"},
}

func newHandler(t *testing.T, lookup FixtureLookup) *Handler {
	t.Helper()
	h, err := NewHandler(DefaultConfig(), lookup, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func candidateIDs(cs []models.EntityCandidate) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestExecute_ReturnsAllCandidates(t *testing.T) {
	lookup := new(MockLookup)
	lookup.On("Resolve", mock.Anything, "conv-1:event", "arsenal spurs").Return(upcoming, nil)

	out, err := newHandler(t, lookup).Execute(context.Background(), &Input{ConversationID: "conv-1", Phrase: " arsenal spurs "})
	require.NoError(t, err)

	assert.Equal(t, []string{"fx-1", "fx-2"}, candidateIDs(out.Candidates))
	assert.Equal(t, "Arsenal vs Tottenham", out.Candidates[0].DisplayName)
	assert.Equal(t, "Premier League", out.Candidates[0].Detail)
	require.NotNil(t, out.Candidates[0].Date)
	assert.Nil(t, out.Selected)
	lookup.AssertExpectations(t)
}

func TestExecute_AutoSelectKeepsSoonest(t *testing.T) {
	lookup := new(MockLookup)
	lookup.On("Resolve", mock.Anything, mock.AnythingOfType("string"), "arsenal spurs").Return(upcoming, nil)

	out, err := newHandler(t, lookup).Execute(context.Background(), &Input{Phrase: "arsenal spurs", AutoSelect: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"fx-1"}, candidateIDs(out.Candidates))
	require.NotNil(t, out.Selected)
	assert.Equal(t, "fx-1", out.Selected.ID)
}

func TestExecute_NoMatches(t *testing.T) {
	lookup := new(MockLookup)
	lookup.On("Resolve", mock.Anything, mock.Anything, "chelsea").Return([]models.Fixture{}, nil)

	out, err := newHandler(t, lookup).Execute(context.Background(), &Input{Phrase: "chelsea", AutoSelect: true})
	require.NoError(t, err)
	assert.NotNil(t, out.Candidates)
	assert.Empty(t, out.Candidates)
	assert.Nil(t, out.Selected)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		phrase   string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{"empty phrase", "  ", nil, apperrors.ErrCodeInvalidInput},
		{"timeout", "arsenal", context.DeadlineExceeded, apperrors.ErrCodeCatalogSearchTimeout},
		{"backend failure", "arsenal", errors.New("connection refused"), apperrors.ErrCodeCatalogSearchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := new(MockLookup)
			lookup.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newHandler(t, lookup).Execute(context.Background(), &Input{Phrase: tt.phrase})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.AsStandard(err).Code)
		})
	}
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(&Config{Timeout: 0, MaxJobsActive: 1}, new(MockLookup), logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = NewHandler(nil, nil, logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	c := FromAppConfig(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 4000},
	}})
	assert.False(t, c.Enabled)
	assert.Equal(t, 2, c.MaxJobsActive)
	assert.Equal(t, 4*time.Second, c.Timeout)
}

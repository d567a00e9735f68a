package distribution_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/distribution"
	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type savingsResult struct {
	savings []domain.MonthlySaving
	err     error
	delay   time.Duration
}

type mockSavingsFetcher struct {
	mu       sync.Mutex
	results  map[string]savingsResult
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockSavingsFetcher) GetMonthlySavings(ctx context.Context, branchID string, month, year int) ([]domain.MonthlySaving, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, branchID)
	r := m.results[branchID]
	m.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.savings, r.err
}

// --- Tests ---

func TestDistribute_FetchesEveryBranchOnce(t *testing.T) {
	fetcher := &mockSavingsFetcher{results: map[string]savingsResult{
		"br-a": {savings: []domain.MonthlySaving{{Amount: 500}}},
		"br-b": {},
	}}
	calc := distribution.New(fetcher, distribution.WithLogger(zap.NewNop()))

	dist, err := calc.Distribute(context.Background(), []domain.Branch{branchA(), branchB()}, 3, 2024)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"br-a", "br-b"}, fetcher.calls)
	assert.InDelta(t, 10250, dist.TotalProfit, tolerance)
	assert.Equal(t, 3, dist.Month)
	assert.Equal(t, 2024, dist.Year)
	assert.NotEmpty(t, dist.ReportID)
	assert.Equal(t, "name", dist.KeyPolicy)
}

func TestDistribute_FetchFailureIsNotAnError(t *testing.T) {
	fetcher := &mockSavingsFetcher{results: map[string]savingsResult{
		"br-a": {savings: []domain.MonthlySaving{{Amount: 500}}},
		"br-b": {err: &domain.ErrExternalService{Service: "savings", Err: errors.New("502")}},
	}}
	calc := distribution.New(fetcher)

	dist, err := calc.Distribute(context.Background(), []domain.Branch{branchA(), branchB()}, 3, 2024)
	require.NoError(t, err)

	assert.InDelta(t, 9250, dist.TotalProfit, tolerance)
	assert.Equal(t, []string{"Branch B"}, dist.SkippedBranches)
	require.Len(t, dist.ShareholderData, 2)
	assert.Len(t, dist.ShareholderData[0].Branches, 1)
}

func TestDistribute_OrderIndependentOfFetchCompletion(t *testing.T) {
	fetcher := &mockSavingsFetcher{results: map[string]savingsResult{
		"br-a": {delay: 40 * time.Millisecond},
		"br-b": {},
	}}
	calc := distribution.New(fetcher)

	dist, err := calc.Distribute(context.Background(), []domain.Branch{branchA(), branchB()}, 1, 2025)
	require.NoError(t, err)

	require.Len(t, dist.ShareholderData, 2)
	assert.Equal(t, "Ali", dist.ShareholderData[0].Name)
	assert.Equal(t, "Branch A", dist.ShareholderData[0].Branches[0].BranchName)
	assert.Equal(t, "Branch B", dist.ShareholderData[0].Branches[1].BranchName)
}

func TestDistribute_RespectsMaxConcurrency(t *testing.T) {
	results := map[string]savingsResult{}
	branches := make([]domain.Branch, 0, 12)
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		results[id] = savingsResult{delay: 10 * time.Millisecond}
		branches = append(branches, domain.Branch{ID: id, Name: "Branch " + id, TotalEarnings: 100})
	}
	fetcher := &mockSavingsFetcher{results: results}
	calc := distribution.New(fetcher, distribution.WithMaxConcurrency(3))

	dist, err := calc.Distribute(context.Background(), branches, 6, 2024)
	require.NoError(t, err)

	assert.InDelta(t, 1200, dist.TotalProfit, tolerance)
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(3))
	assert.Len(t, fetcher.calls, 12)
}

func TestDistribute_KeyPolicyOption(t *testing.T) {
	branches := []domain.Branch{
		{ID: "n", Name: "North", TotalEarnings: 1000, Shareholders: []domain.Shareholder{{Name: "Ahmed", Quid: "A-1", SharePercentage: 100}}},
		{ID: "s", Name: "South", TotalEarnings: 1000, Shareholders: []domain.Shareholder{{Name: "Ahmed", Quid: "A-2", SharePercentage: 100}}},
	}
	fetcher := &mockSavingsFetcher{results: map[string]savingsResult{}}

	byName, err := distribution.New(fetcher).Distribute(context.Background(), branches, 1, 2024)
	require.NoError(t, err)
	byQuid, err := distribution.New(fetcher, distribution.WithKeyPolicy(distribution.KeyByQuid)).Distribute(context.Background(), branches, 1, 2024)
	require.NoError(t, err)

	assert.Len(t, byName.ShareholderData, 1)
	assert.Len(t, byQuid.ShareholderData, 2)
}

func TestDistribute_EmptyBranches(t *testing.T) {
	calc := distribution.New(&mockSavingsFetcher{})

	dist, err := calc.Distribute(context.Background(), nil, 12, 2023)
	require.NoError(t, err)

	assert.Empty(t, dist.ShareholderData)
	assert.Zero(t, dist.TotalProfit)
}

func TestDistribute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calc := distribution.New(&mockSavingsFetcher{})

	_, err := calc.Distribute(ctx, []domain.Branch{branchA()}, 1, 2024)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDistribute_Clock(t *testing.T) {
	fixed := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	calc := distribution.New(&mockSavingsFetcher{}, distribution.WithClock(func() time.Time { return fixed }))

	dist, err := calc.Distribute(context.Background(), nil, 3, 2024)
	require.NoError(t, err)
	assert.Equal(t, fixed, dist.GeneratedAt)
}

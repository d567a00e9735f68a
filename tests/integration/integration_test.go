package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/distribution"
	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/handler"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/cache"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/client"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/observability"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"
	"github.com/boddenberg/branch-dashboard-bfa/internal/service"

	"go.uber.org/zap"
)

const testToken = "integration-token"

func zakath(v float64) *float64 { return &v }

// dashboardAPI mocks the upstream dashboard REST API.
type dashboardAPI struct {
	branches     []domain.Branch
	savings      map[string][]domain.MonthlySaving
	failing      map[string]bool
	branchCalls  atomic.Int32
	unauthorized atomic.Int32
}

func (d *dashboardAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		d.unauthorized.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/branches":
		d.branchCalls.Add(1)
		json.NewEncoder(w).Encode(domain.BranchList{Branches: d.branches})
	case strings.HasPrefix(r.URL.Path, "/monthly-savings/"):
		id := strings.TrimPrefix(r.URL.Path, "/monthly-savings/")
		if d.failing[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		savings, ok := d.savings[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(domain.MonthlySavingsList{Savings: savings})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newDashboardAPI() *dashboardAPI {
	return &dashboardAPI{
		branches: []domain.Branch{
			{
				ID: "br-1", Name: "Downtown", TotalEarnings: 10000, ZakathPercentage: zakath(2.5),
				Shareholders: []domain.Shareholder{
					{Name: "Ali", Quid: "Q-100", SharePercentage: 60},
					{Name: "Sara", Quid: "Q-200", SharePercentage: 40},
				},
			},
			{
				ID: "br-2", Name: "Harbor", TotalEarnings: 1000,
				Shareholders: []domain.Shareholder{
					{Name: "Ali", Quid: "Q-100", SharePercentage: 100},
				},
			},
		},
		savings: map[string][]domain.MonthlySaving{
			"br-1": {{ID: "s-1", Name: "Reserve", Amount: 300}, {ID: "s-2", Name: "Maintenance", Amount: 200}},
		},
		failing: map[string]bool{},
	}
}

func newServer(t *testing.T, api *dashboardAPI) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 5 * time.Millisecond, MaxConcurrency: 4}
	dashboard := client.NewDashboardClient(
		&http.Client{Timeout: 5 * time.Second},
		upstream.URL,
		testToken,
		resilience.NewCircuitBreaker("test-branches", logger),
		resilience.NewTransportCircuitBreaker("test-savings", logger),
		cfg,
	)

	svc := service.NewProfitReportService(
		dashboard,
		distribution.New(dashboard, distribution.WithMaxConcurrency(cfg.MaxConcurrency), distribution.WithLogger(logger)),
		cache.New[*domain.ProfitDistribution](5*time.Minute),
		nil,
		metrics,
		logger,
	)

	router := handler.NewRouter(svc, service.NewHealthService(nil), metrics, logger, handler.RouterOptions{})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// TestIntegration_FullFlow runs the report through the real client, service and router.
func TestIntegration_FullFlow(t *testing.T) {
	api := newDashboardAPI()
	srv := newServer(t, api)

	var page domain.ShareholderPage
	url := fmt.Sprintf("%s/v1/reports/profit-distribution?month=%d&year=%d", srv.URL, 3, 2024)
	if code := getJSON(t, url, &page); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	if page.TotalProfit != 10250 {
		t.Errorf("expected company total 10250, got %f", page.TotalProfit)
	}
	if len(page.SkippedBranches) != 0 {
		t.Errorf("expected no skipped branches, got %v", page.SkippedBranches)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 shareholders, got %d", len(page.Data))
	}

	ali := page.Data[0]
	if ali.Name != "Ali" || ali.TotalProfit != 6550 {
		t.Errorf("expected Ali with 6550, got %s %f", ali.Name, ali.TotalProfit)
	}
	if len(ali.Branches) != 2 || ali.Branches[0].BranchProfit != 9250 || ali.Branches[0].ShareholderProfit != 5550 {
		t.Errorf("unexpected Ali branch breakdown: %+v", ali.Branches)
	}
	if page.Data[1].Name != "Sara" || page.Data[1].TotalProfit != 3700 {
		t.Errorf("expected Sara with 3700, got %s %f", page.Data[1].Name, page.Data[1].TotalProfit)
	}

	// Second call is served from cache.
	getJSON(t, url, &page)
	if api.branchCalls.Load() != 1 {
		t.Errorf("expected cached report, upstream branch calls = %d", api.branchCalls.Load())
	}
	if api.unauthorized.Load() != 0 {
		t.Errorf("expected bearer token on every upstream call, %d rejected", api.unauthorized.Load())
	}
}

// TestIntegration_PartialReport verifies a failing savings fetch excludes
// only that branch and the partial report is not cached.
func TestIntegration_PartialReport(t *testing.T) {
	api := newDashboardAPI()
	api.failing["br-2"] = true
	srv := newServer(t, api)

	var page domain.ShareholderPage
	url := srv.URL + "/v1/reports/profit-distribution?month=3&year=2024"
	if code := getJSON(t, url, &page); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	if len(page.SkippedBranches) != 1 || page.SkippedBranches[0] != "Harbor" {
		t.Errorf("expected Harbor skipped, got %v", page.SkippedBranches)
	}
	if page.TotalProfit != 9250 {
		t.Errorf("expected 9250, got %f", page.TotalProfit)
	}
	if page.Data[0].TotalProfit != 5550 {
		t.Errorf("expected Ali 5550, got %f", page.Data[0].TotalProfit)
	}

	getJSON(t, url, &page)
	if api.branchCalls.Load() != 2 {
		t.Errorf("expected partial report to be regenerated, branch calls = %d", api.branchCalls.Load())
	}
}

// TestIntegration_UpstreamDown verifies a branch list failure maps to 502.
func TestIntegration_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	logger := zap.NewNop()
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2}
	dashboard := client.NewDashboardClient(&http.Client{Timeout: time.Second}, upstream.URL, "",
		resilience.NewCircuitBreaker("down-branches", logger), resilience.NewTransportCircuitBreaker("down-savings", logger), cfg)
	svc := service.NewProfitReportService(
		dashboard,
		distribution.New(dashboard, distribution.WithLogger(logger)),
		cache.New[*domain.ProfitDistribution](time.Minute),
		nil,
		observability.NewMetrics(),
		logger,
	)
	srv := httptest.NewServer(handler.NewRouter(svc, nil, nil, logger, handler.RouterOptions{}))
	defer srv.Close()

	if code := getJSON(t, srv.URL+"/v1/reports/profit-distribution?month=3&year=2024", nil); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}

// TestIntegration_Export downloads the spreadsheet export end to end.
func TestIntegration_Export(t *testing.T) {
	srv := newServer(t, newDashboardAPI())

	resp, err := http.Get(srv.URL + "/v1/reports/profit-distribution/export?month=3&year=2024&format=xlsx")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "profit-distribution-2024-03.xlsx") {
		t.Errorf("unexpected Content-Disposition %q", resp.Header.Get("Content-Disposition"))
	}
}

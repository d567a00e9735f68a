package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
	"github.com/boddenberg/branch-dashboard-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// DashboardClient reads branches and monthly savings from the dashboard REST API.
type DashboardClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	branchesCB *gobreaker.CircuitBreaker
	savingsCB  *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewDashboardClient creates a new DashboardClient. token may be empty.
// Branch and savings reads go through separate breakers; savingsCB should
// only trip on transport failures (see resilience.NewTransportCircuitBreaker)
// so a failing branch does not take its siblings down with it.
func NewDashboardClient(httpClient *http.Client, baseURL, token string, branchesCB, savingsCB *gobreaker.CircuitBreaker, cfg resilience.Config) *DashboardClient {
	return &DashboardClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
		branchesCB: branchesCB,
		savingsCB:  savingsCB,
		cfg:        cfg,
	}
}

// ListBranches fetches every branch with its shareholders.
func (c *DashboardClient) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	ctx, span := tracer.Start(ctx, "DashboardClient.ListBranches")
	defer span.End()

	var list domain.BranchList
	found, err := c.getJSON(ctx, c.branchesCB, "branches", c.baseURL+"/branches", &list)
	if err != nil {
		return nil, err
	}
	if !found || list.Branches == nil {
		return []domain.Branch{}, nil
	}
	span.SetAttributes(attribute.Int("branches.count", len(list.Branches)))
	return list.Branches, nil
}

// GetMonthlySavings fetches the savings deductions of one branch for month/year.
// A 404 means nothing was recorded and yields an empty list.
func (c *DashboardClient) GetMonthlySavings(ctx context.Context, branchID string, month, year int) ([]domain.MonthlySaving, error) {
	ctx, span := tracer.Start(ctx, "DashboardClient.GetMonthlySavings")
	defer span.End()
	span.SetAttributes(
		attribute.String("branch.id", branchID),
		attribute.Int("report.month", month),
		attribute.Int("report.year", year),
	)

	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	endpoint := fmt.Sprintf("%s/monthly-savings/%s?%s", c.baseURL, url.PathEscape(branchID), q.Encode())

	var list domain.MonthlySavingsList
	found, err := c.getJSON(ctx, c.savingsCB, "savings", endpoint, &list)
	if err != nil {
		return nil, err
	}
	if !found || list.Savings == nil {
		return []domain.MonthlySaving{}, nil
	}
	return list.Savings, nil
}

// getJSON performs a GET with retry inside cb and decodes
// the body into out. It returns found=false on 404.
func (c *DashboardClient) getJSON(ctx context.Context, cb *gobreaker.CircuitBreaker, service, endpoint string, out any) (bool, error) {
	result, err := cb.Execute(func() (any, error) {
		found := true
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "application/json")
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				found = false
				return nil
			}
			if resp.StatusCode != http.StatusOK {
				return &domain.ErrUpstreamStatus{Service: service, StatusCode: resp.StatusCode}
			}

			return json.NewDecoder(resp.Body).Decode(out)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return found, nil
	})

	if err != nil {
		if resilience.IsOpen(err) {
			return false, &domain.ErrExternalService{Service: service, Err: &domain.ErrCircuitOpen{Service: service}}
		}
		return false, &domain.ErrExternalService{Service: service, Err: err}
	}

	return result.(bool), nil
}

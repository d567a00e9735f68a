// Package report is the presentation side of the profit distribution report:
// free-text filtering, sorting, pagination and document exports.
package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
)

// SortField is a sortable shareholder column.
type SortField string

const (
	SortNone          SortField = ""
	SortByName        SortField = "name"
	SortByQuid        SortField = "quid"
	SortByTotalProfit SortField = "totalProfit"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Query describes the table view the dashboard asks for.
type Query struct {
	Search   string
	SortBy   SortField
	Order    SortOrder
	Page     int
	PageSize int
}

// Filter keeps rows whose name, quid or any branch name contains search,
// case-insensitively. The input is not modified.
func Filter(rows []domain.ShareholderSummary, search string) []domain.ShareholderSummary {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.ShareholderSummary, 0, len(rows))
	for _, r := range rows {
		if needle == "" || matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r domain.ShareholderSummary, needle string) bool {
	if strings.Contains(strings.ToLower(r.Name), needle) || strings.Contains(strings.ToLower(r.Quid), needle) {
		return true
	}
	for _, b := range r.Branches {
		if strings.Contains(strings.ToLower(b.BranchName), needle) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of rows. SortNone keeps the report order.
func Sort(rows []domain.ShareholderSummary, field SortField, order SortOrder) []domain.ShareholderSummary {
	out := slices.Clone(rows)
	if out == nil {
		out = []domain.ShareholderSummary{}
	}

	var compare func(a, b domain.ShareholderSummary) int
	switch field {
	case SortByName:
		compare = func(a, b domain.ShareholderSummary) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByQuid:
		compare = func(a, b domain.ShareholderSummary) int {
			return cmp.Compare(strings.ToLower(a.Quid), strings.ToLower(b.Quid))
		}
	case SortByTotalProfit:
		compare = func(a, b domain.ShareholderSummary) int {
			return cmp.Compare(a.TotalProfit, b.TotalProfit)
		}
	default:
		return out
	}

	if order == Desc {
		asc := compare
		compare = func(a, b domain.ShareholderSummary) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Paginate cuts one page out of rows. page < 1 is treated as 1; pageSize
// outside 1..MaxPageSize falls back to DefaultPageSize or MaxPageSize.
func Paginate[T any](rows []T, page, pageSize int) domain.ListResponse[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(rows)
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := min(start+pageSize, total)

	data := make([]T, end-start)
	copy(data, rows[start:end])

	return domain.ListResponse[T]{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < total,
	}
}

// Apply filters, sorts and paginates a distribution. Company totals always
// come from the full report.
func Apply(dist *domain.ProfitDistribution, q Query) domain.ShareholderPage {
	rows := Filter(dist.ShareholderData, q.Search)
	rows = Sort(rows, q.SortBy, q.Order)

	skipped := dist.SkippedBranches
	if skipped == nil {
		skipped = []string{}
	}
	return domain.ShareholderPage{
		ListResponse:    Paginate(rows, q.Page, q.PageSize),
		ReportID:        dist.ReportID,
		Month:           dist.Month,
		Year:            dist.Year,
		TotalProfit:     dist.TotalProfit,
		SkippedBranches: skipped,
	}
}

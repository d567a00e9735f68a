package domain

import "time"

// ============================================================
// Profit distribution report
// ============================================================

// ReportRequest identifies one profit distribution run.
type ReportRequest struct {
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	KeyPolicy string `json:"key,omitempty"` // name (default) or quid
}

// ShareholderBranchShare is one branch's contribution to a shareholder.
// ZakathPercentage is carried from the shareholder record for display only;
// it is not applied to ShareholderProfit.
type ShareholderBranchShare struct {
	BranchName        string  `json:"branchName"`
	SharePercentage   float64 `json:"sharePercentage"`
	BranchProfit      float64 `json:"branchProfit"`
	ShareholderProfit float64 `json:"shareholderProfit"`
	ZakathPercentage  float64 `json:"zakathPercentage"`
}

// ShareholderSummary aggregates a shareholder's profit across branches.
// TotalProfit is the unrounded sum of Branches[].ShareholderProfit.
type ShareholderSummary struct {
	Name        string                   `json:"name"`
	Quid        string                   `json:"quid"`
	TotalProfit float64                  `json:"totalProfit"`
	Branches    []ShareholderBranchShare `json:"branches"`
}

// ProfitDistribution is the full result of a report run.
type ProfitDistribution struct {
	ReportID        string               `json:"reportId"`
	Month           int                  `json:"month"`
	Year            int                  `json:"year"`
	KeyPolicy       string               `json:"key"`
	ShareholderData []ShareholderSummary `json:"shareholderData"`
	TotalProfit     float64              `json:"totalProfit"`
	BranchCount     int                  `json:"branchCount"`
	SkippedBranches []string             `json:"skippedBranches"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

// Partial reports whether any branch was excluded by a failed savings fetch.
func (d *ProfitDistribution) Partial() bool {
	return len(d.SkippedBranches) > 0
}

// ShareholderPage is a filtered, sorted page of a distribution.
// TotalProfit is always the company total of the unfiltered report.
type ShareholderPage struct {
	ListResponse[ShareholderSummary]
	ReportID        string   `json:"reportId"`
	Month           int      `json:"month"`
	Year            int      `json:"year"`
	TotalProfit     float64  `json:"totalProfit"`
	SkippedBranches []string `json:"skippedBranches"`
}

// ExportDocument is a rendered report ready for download.
type ExportDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

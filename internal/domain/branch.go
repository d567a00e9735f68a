// Package domain defines the core business entities for the branch dashboard.
// These models are independent of external services and represent the
// canonical data structures used throughout the BFA.
package domain

// ============================================================
// Branches & Shareholders (read from the dashboard API)
// ============================================================

// Branch is a business branch with its earnings for the reporting period.
// ZakathPercentage is a pointer because the dashboard omits it for branches
// that were never configured; a missing value counts as zero.
type Branch struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	TotalEarnings    float64       `json:"totalEarnings"`
	ZakathPercentage *float64      `json:"zakathPercentage,omitempty"`
	Shareholders     []Shareholder `json:"shareholders,omitempty"`
}

// Zakath returns the branch zakat percentage, 0 when missing.
func (b Branch) Zakath() float64 {
	if b.ZakathPercentage == nil {
		return 0
	}
	return *b.ZakathPercentage
}

// Shareholder is an ownership record attached to a branch.
// Name and Quid are not guaranteed unique.
type Shareholder struct {
	Name             string   `json:"name"`
	Quid             string   `json:"quid"`
	SharePercentage  float64  `json:"sharePercentage"`
	ZakathPercentage *float64 `json:"zakathPercentage,omitempty"`
}

// Zakath returns the shareholder's informational zakat percentage, 0 when missing.
func (s Shareholder) Zakath() float64 {
	if s.ZakathPercentage == nil {
		return 0
	}
	return *s.ZakathPercentage
}

// MonthlySaving is a named deduction line for a branch in a given month.
// Only Amount takes part in the profit calculation.
type MonthlySaving struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
}

// BranchList is the dashboard API envelope for GET /branches.
type BranchList struct {
	Branches []Branch `json:"branches"`
}

// MonthlySavingsList is the dashboard API envelope for GET /monthly-savings/{branchId}.
type MonthlySavingsList struct {
	Savings []MonthlySaving `json:"savings"`
}

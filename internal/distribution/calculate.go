// Package distribution computes shareholder profit distribution reports.
//
// A branch's distributable profit is its total earnings minus the zakat
// deduction (branch zakat percentage) minus the month's savings deductions.
// Each shareholder receives their share percentage of that figure, summed
// across every branch they hold shares in. The result is never rounded here;
// rounding is a display concern.
package distribution

import (
	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
)

// KeyPolicy selects how shareholder records from different branches are
// merged into one summary.
type KeyPolicy string

const (
	// KeyByName merges shareholders sharing a display name. Two different
	// people with the same name end up in one summary.
	KeyByName KeyPolicy = "name"
	// KeyByQuid merges shareholders sharing a quid. Records without a quid
	// fall back to their name.
	KeyByQuid KeyPolicy = "quid"
)

// ParseKeyPolicy maps a query value to a KeyPolicy. Empty means KeyByName.
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch KeyPolicy(s) {
	case "", KeyByName:
		return KeyByName, nil
	case KeyByQuid:
		return KeyByQuid, nil
	default:
		return "", &domain.ErrValidation{Field: "key", Message: "must be one of: name, quid"}
	}
}

func (p KeyPolicy) key(s domain.Shareholder) string {
	if p == KeyByQuid && s.Quid != "" {
		return "quid:" + s.Quid
	}
	return "name:" + s.Name
}

// BranchSavings is the outcome of one branch's savings fetch.
// A non-nil Err excludes the branch from the report.
type BranchSavings struct {
	Savings []domain.MonthlySaving
	Err     error
}

// SavingsTotal sums the amounts of a savings list.
func SavingsTotal(savings []domain.MonthlySaving) float64 {
	var total float64
	for _, s := range savings {
		total += s.Amount
	}
	return total
}

// BranchProfit returns the branch profit after zakat and savings. It may be negative.
func BranchProfit(b domain.Branch, savingsTotal float64) float64 {
	zakathAmount := b.TotalEarnings * (b.Zakath() / 100)
	profitAfterZakath := b.TotalEarnings - zakathAmount
	return profitAfterZakath - savingsTotal
}

// Calculate reduces branches into shareholder summaries in a single pass, in
// input order. savings[i] belongs to branches[i]; a missing entry counts as no
// savings. Summaries are ordered by first appearance. The inputs are not modified.
func Calculate(branches []domain.Branch, savings []BranchSavings, policy KeyPolicy) domain.ProfitDistribution {
	if policy == "" {
		policy = KeyByName
	}

	out := domain.ProfitDistribution{
		KeyPolicy:       string(policy),
		ShareholderData: make([]domain.ShareholderSummary, 0),
		SkippedBranches: make([]string, 0),
		BranchCount:     len(branches),
	}
	index := make(map[string]int)

	for i, branch := range branches {
		var fetched BranchSavings
		if i < len(savings) {
			fetched = savings[i]
		}
		if fetched.Err != nil {
			out.SkippedBranches = append(out.SkippedBranches, branch.Name)
			continue
		}

		profit := BranchProfit(branch, SavingsTotal(fetched.Savings))
		out.TotalProfit += profit

		for _, sh := range branch.Shareholders {
			shareholderProfit := profit * (sh.SharePercentage / 100)

			k := policy.key(sh)
			pos, ok := index[k]
			if !ok {
				pos = len(out.ShareholderData)
				index[k] = pos
				out.ShareholderData = append(out.ShareholderData, domain.ShareholderSummary{
					Name:     sh.Name,
					Quid:     sh.Quid,
					Branches: make([]domain.ShareholderBranchShare, 0, 1),
				})
			}

			summary := &out.ShareholderData[pos]
			summary.TotalProfit += shareholderProfit
			summary.Branches = append(summary.Branches, domain.ShareholderBranchShare{
				BranchName:        branch.Name,
				SharePercentage:   sh.SharePercentage,
				BranchProfit:      profit,
				ShareholderProfit: shareholderProfit,
				ZakathPercentage:  sh.Zakath(),
			})
		}
	}

	return out
}

package report

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatAmount renders a money value with two decimals and thousands
// separators, e.g. 9250 → "9,250.00".
func FormatAmount(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// FormatPercent renders a percentage with at most two decimals, e.g. 2.5 → "2.5%".
func FormatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "%"
}

// PeriodLabel renders a reporting period as "March 2024".
func PeriodLabel(month, year int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%02d/%d", month, year)
	}
	return fmt.Sprintf("%s %d", time.Month(month), year)
}

package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(
	template.New("profit_distribution.html.tmpl").
		Funcs(template.FuncMap{
			"amount":  FormatAmount,
			"percent": FormatPercent,
			"period":  PeriodLabel,
		}).
		ParseFS(templateFS, "templates/profit_distribution.html.tmpl"),
)

// HTMLOptions controls the printable document.
type HTMLOptions struct {
	Title       string
	AutoPrint   bool // open the browser print dialog on load
	GeneratedAt time.Time
}

type htmlPayload struct {
	Title       string
	AutoPrint   bool
	GeneratedAt time.Time
	Dist        *domain.ProfitDistribution
}

// RenderHTML writes the full, unfiltered distribution as a printable HTML document.
func RenderHTML(w io.Writer, dist *domain.ProfitDistribution, opts HTMLOptions) error {
	if opts.Title == "" {
		opts.Title = "Shareholder Profit Distribution"
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = dist.GeneratedAt
	}
	return htmlTemplate.Execute(w, htmlPayload{
		Title:       opts.Title,
		AutoPrint:   opts.AutoPrint,
		GeneratedAt: opts.GeneratedAt,
		Dist:        dist,
	})
}

// HTMLString renders the document to a string, for PDF conversion.
func HTMLString(dist *domain.ProfitDistribution, opts HTMLOptions) (string, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, dist, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/boddenberg/branch-dashboard-bfa/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report the wire name (query or json) instead of the Go field name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validateStruct runs the validator and converts the first failure into
// a domain.ErrValidation.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ErrValidation{Field: "request", Message: err.Error()}
	}
	fe := fieldErrs[0]
	return &domain.ErrValidation{Field: fe.Field(), Message: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// queryInt reads an optional integer query parameter. Missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ErrValidation{Field: name, Message: "must be an integer"}
	}
	return v, nil
}

// periodQuery is the month/year pair every report endpoint takes.
type periodQuery struct {
	Month int    `query:"month" validate:"required,min=1,max=12"`
	Year  int    `query:"year" validate:"required,min=1000,max=9999"`
	Key   string `query:"key" validate:"omitempty,oneof=name quid"`
}

func parsePeriod(r *http.Request) (periodQuery, error) {
	var q periodQuery
	var err error
	if q.Month, err = queryInt(r, "month"); err != nil {
		return q, err
	}
	if q.Year, err = queryInt(r, "year"); err != nil {
		return q, err
	}
	q.Key = strings.TrimSpace(r.URL.Query().Get("key"))
	return q, nil
}

func (q periodQuery) request() domain.ReportRequest {
	return domain.ReportRequest{Month: q.Month, Year: q.Year, KeyPolicy: q.Key}
}

// listQuery is the dashboard table view: period plus search, sort and page.
type listQuery struct {
	periodQuery
	Search   string `query:"q" validate:"max=200"`
	Sort     string `query:"sort" validate:"omitempty,oneof=name quid totalProfit"`
	Order    string `query:"order" validate:"omitempty,oneof=asc desc"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

func parseListQuery(r *http.Request) (listQuery, error) {
	var q listQuery
	var err error
	if q.periodQuery, err = parsePeriod(r); err != nil {
		return q, err
	}
	if q.Page, err = queryInt(r, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(r, "page_size"); err != nil {
		return q, err
	}
	q.Search = r.URL.Query().Get("q")
	q.Sort = r.URL.Query().Get("sort")
	q.Order = strings.ToLower(r.URL.Query().Get("order"))
	return q, nil
}

type exportQuery struct {
	periodQuery
	Format string `query:"format" validate:"required,oneof=html xlsx pdf"`
}

type distributeRequest struct {
	Month    int             `json:"month" validate:"required,min=1,max=12"`
	Year     int             `json:"year" validate:"required,min=1000,max=9999"`
	Key      string          `json:"key" validate:"omitempty,oneof=name quid"`
	Branches []domain.Branch `json:"branches"`
}

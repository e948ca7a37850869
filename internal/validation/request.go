package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "campaignpulse/internal/errors"
	"campaignpulse/pkg/contracts/domain"
)

// DateRangeRequest is the wire form of an inclusive calendar-day range.
type DateRangeRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" validate:"required,datetime=2006-01-02"`
}

// FilterRequest is the wire form of a dashboard or export selection.
type FilterRequest struct {
	Influencers      []string          `json:"influencers,omitempty" validate:"max=5000,dive,max=256"`
	Brands           []string          `json:"brands,omitempty" validate:"max=5000,dive,max=256"`
	Platforms        []string          `json:"platforms,omitempty" validate:"max=100,dive,max=128"`
	InfluencerSearch string            `json:"influencer_search,omitempty" validate:"max=256"`
	BrandSearch      string            `json:"brand_search,omitempty" validate:"max=256"`
	DateRange        *DateRangeRequest `json:"date_range,omitempty"`
}

// ToFilterSpec converts a validated request into the engine's selection.
func (r FilterRequest) ToFilterSpec() (domain.FilterSpec, error) {
	spec := domain.FilterSpec{
		Influencers:      r.Influencers,
		Brands:           r.Brands,
		Platforms:        r.Platforms,
		InfluencerSearch: strings.TrimSpace(r.InfluencerSearch),
		BrandSearch:      strings.TrimSpace(r.BrandSearch),
	}
	if r.DateRange == nil {
		return spec, nil
	}

	start, err := domain.ParseDay(r.DateRange.Start)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	end, err := domain.ParseDay(r.DateRange.End)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	spec.DateRange = &domain.DateRange{Start: start, End: end}
	return spec, nil
}

// Validator wraps validator/v10 with JSON field names and API error output.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a request validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateDateRange, DateRangeRequest{})

	return &Validator{validate: v}
}

// validateDateRange rejects ranges whose end precedes their start.
func validateDateRange(sl validator.StructLevel) {
	dr := sl.Current().Interface().(DateRangeRequest)

	start, errStart := domain.ParseDay(dr.Start)
	end, errEnd := domain.ParseDay(dr.End)
	if errStart != nil || errEnd != nil {
		return
	}
	if end.Before(start) {
		sl.ReportError(dr.End, "end", "End", "daterange", "")
	}
}

// Struct validates s and returns an *APIError listing each failed field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// DecodeFilter reads a JSON FilterRequest from body and converts it. An
// empty body selects every row.
func (v *Validator) DecodeFilter(body io.Reader) (domain.FilterSpec, error) {
	var req FilterRequest
	if body != nil {
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return domain.FilterSpec{}, apierrors.InvalidRequestWithError(err)
		}
	}
	return v.Filter(req)
}

// Filter validates req and converts it.
func (v *Validator) Filter(req FilterRequest) (domain.FilterSpec, error) {
	if err := v.Struct(req); err != nil {
		return domain.FilterSpec{}, err
	}
	spec, err := req.ToFilterSpec()
	if err != nil {
		return domain.FilterSpec{}, apierrors.ErrValidation("date_range", err.Error())
	}
	return spec, nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return fmt.Sprintf("must be a date in %s form", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "daterange":
		return "must not be before start"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

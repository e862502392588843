package bills

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/go-playground/validator/v10"
)

// DefaultPct is the VAT percentage used when the form leaves it blank,
// zero or unparsable.
const DefaultPct = 20

// NewBillForm holds the raw scalar fields of the new-bill form.
type NewBillForm struct {
	Type       string `form:"expense-type" validate:"required"`
	Name       string `form:"expense-name"`
	Date       string `form:"datepicker" validate:"required,datetime=2006-01-02"`
	Amount     string `form:"amount" validate:"required,numeric"`
	VAT        string `form:"vat" validate:"omitempty,numeric"`
	Pct        string `form:"pct" validate:"omitempty,numeric"`
	Commentary string `form:"commentary"`
}

// FieldError describes one invalid form field.
type FieldError struct {
	Field string
	Rule  string
}

// ValidationError lists the fields rejected by Validate.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("form")
		})
	})
	return validate
}

// Validate checks the scalar fields. Whitespace is trimmed first.
func (f NewBillForm) Validate() error {
	f = f.trimmed()
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("Validate: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

func (f NewBillForm) trimmed() NewBillForm {
	return NewBillForm{
		Type:       strings.TrimSpace(f.Type),
		Name:       strings.TrimSpace(f.Name),
		Date:       strings.TrimSpace(f.Date),
		Amount:     strings.TrimSpace(f.Amount),
		VAT:        strings.TrimSpace(f.VAT),
		Pct:        strings.TrimSpace(f.Pct),
		Commentary: strings.TrimSpace(f.Commentary),
	}
}

// BuildBillFromForm combines the form fields with the stored receipt and the
// author's email into a pending bill. The bill takes the receipt key as its ID.
func BuildBillFromForm(f NewBillForm, receipt domain.Receipt, email string) domain.Bill {
	f = f.trimmed()
	return domain.Bill{
		ID:         receipt.Key,
		Type:       f.Type,
		Name:       f.Name,
		Date:       f.Date,
		Amount:     parseAmount(f.Amount),
		VAT:        f.VAT,
		Pct:        parsePct(f.Pct),
		Commentary: f.Commentary,
		FileURL:    receipt.FileURL,
		FileName:   receipt.FileName,
		Status:     domain.StatusPending,
		Email:      email,
	}
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parsePct(s string) int {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultPct
	}
	pct := int(math.Trunc(v))
	if pct == 0 {
		return DefaultPct
	}
	return pct
}

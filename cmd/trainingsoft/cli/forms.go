package cli

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var validate = validator.New()

// normalizeNumeric folds full-width digits and drops separators so that
// "２０１２３ ４５６-789" reaches the server as "20123456789".
func normalizeNumeric(s string) string {
	s = width.Narrow.String(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// normalizeText applies NFKC and trims surrounding blanks.
func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// normalizeDocument folds full-width characters but keeps separators, which
// are part of the enrollment key.
func normalizeDocument(s string) string {
	return strings.TrimSpace(width.Narrow.String(norm.NFKC.String(s)))
}

type companyLoginForm struct {
	RUC      string `validate:"required"`
	Password string `validate:"required"`
}

type personalLoginForm struct {
	Documento string `validate:"required"`
}

type instructorLoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type passwordForm struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=6,nefield=Current"`
	Confirm string `validate:"required,eqfield=New"`
}

var fieldMessages = map[string]string{
	"required": "es obligatorio",
	"min":      "es demasiado corto",
	"nefield":  "debe ser distinta de la actual",
	"eqfield":  "no coincide",
}

var fieldLabels = map[string]string{
	"RUC":       "RUC",
	"Password":  "contraseña",
	"Documento": "documento",
	"Username":  "usuario",
	"Current":   "contraseña actual",
	"New":       "nueva contraseña",
	"Confirm":   "confirmación",
}

// formError collects per-field messages of a rejected form.
type formError struct {
	fields map[string]string
}

func (e *formError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.fields[k])
	}
	return strings.Join(parts, "; ")
}

func checkForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &formError{fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "no es válido"
		}
		out.fields[label] = msg
	}
	return out
}

package auth

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sstasesores/trainingsoft/internal/identity"
)

// candidates lists the JSON keys probed for one logical field, in priority
// order. The backend renamed fields across versions; these lists are the
// compatibility contract and new spellings are appended, never inserted.
type candidates []string

// tokenKeys is probed on the top-level object first, then on "user".
var tokenKeys = candidates{"token", "jwt", "access_token"}

// fieldTable maps every Identity attribute to its candidate keys.
type fieldTable struct {
	id             candidates
	displayName    candidates
	email          candidates
	companyName    candidates
	taxID          candidates
	documentNumber candidates
	username       candidates
}

var (
	companyFields = fieldTable{
		id:             candidates{"id", "idemp", "_id"},
		displayName:    candidates{"nombre", "razonsoc", "razon_social", "name"},
		email:          candidates{"email", "correo"},
		companyName:    candidates{"empresa", "razonsoc", "razon_social"},
		taxID:          candidates{"ruc"},
		documentNumber: candidates{"documento"},
		username:       candidates{"username"},
	}
	traineeFields = fieldTable{
		id:             candidates{"id", "idcapacitado", "_id"},
		displayName:    candidates{"nombre", "nombres", "name"},
		email:          candidates{"email", "correo"},
		companyName:    candidates{"empresa", "razonsoc"},
		taxID:          candidates{"ruc"},
		documentNumber: candidates{"documento", "dni"},
		username:       candidates{"username"},
	}
	instructorFields = fieldTable{
		id:             candidates{"id", "idcapacitador", "id_capacitador", "_id"},
		displayName:    candidates{"nombre", "nombre_completo", "nombrecompleto", "full_name", "fullname", "name"},
		email:          candidates{"email", "correo"},
		companyName:    candidates{"empresa"},
		taxID:          candidates{"ruc"},
		documentNumber: candidates{"documento", "dni"},
		username:       candidates{"username", "usuario", "user_name"},
	}
)

// Keys never copied into Identity attributes.
var withheldKeys = map[string]struct{}{
	"token":        {},
	"jwt":          {},
	"access_token": {},
	"password":     {},
	"contrasena":   {},
	"tipo":         {},
}

// first returns the first candidate holding a non-empty string or number.
func (c candidates) first(obj map[string]any) string {
	for _, key := range c {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// firstString is first restricted to string values, as required for tokens.
func (c candidates) firstString(obj map[string]any) string {
	for _, key := range c {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractToken applies the documented precedence: top-level keys, then the
// same keys under user. Absence yields "".
func extractToken(body, user map[string]any) string {
	if tok := tokenKeys.firstString(body); tok != "" {
		return tok
	}
	return tokenKeys.firstString(user)
}

// extractFields builds identity fields from the server user object, filling
// gaps from submitted.
func extractFields(table fieldTable, user map[string]any, submitted identity.Fields) identity.Fields {
	return identity.Fields{
		ID:             orDefault(table.id.first(user), submitted.ID),
		DisplayName:    table.displayName.first(user),
		Email:          table.email.first(user),
		CompanyName:    table.companyName.first(user),
		TaxID:          orDefault(table.taxID.first(user), submitted.TaxID),
		DocumentNumber: orDefault(table.documentNumber.first(user), submitted.DocumentNumber),
		Username:       orDefault(table.username.first(user), submitted.Username),
		Attributes:     passThrough(user),
	}
}

// passThrough stringifies every scalar field of the server user object.
func passThrough(user map[string]any) map[string]string {
	out := make(map[string]string, len(user))
	for key, raw := range user {
		if _, skip := withheldKeys[key]; skip {
			continue
		}
		switch v := raw.(type) {
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case bool:
			out[key] = strconv.FormatBool(v)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

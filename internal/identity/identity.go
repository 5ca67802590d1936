// Package identity defines the normalized, role-tagged representation of the
// authenticated actor and its canonical on-disk form.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
)

// Role identifies which login flow produced an Identity.
type Role string

const (
	RoleCompany    Role = "empresa"
	RoleTrainee    Role = "personal"
	RoleInstructor Role = "instructor"
)

// ErrUnknownRole is returned when a role value is not one of the supported roles.
var ErrUnknownRole = errors.New("identity: unknown role")

// ParseRole validates a wire role value.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleCompany, RoleTrainee, RoleInstructor:
		return Role(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// Placeholder returns the display name used when the server omits one.
func (r Role) Placeholder() string {
	switch r {
	case RoleCompany:
		return "Empresa"
	case RoleTrainee:
		return "Personal"
	case RoleInstructor:
		return "Instructor"
	default:
		return ""
	}
}

// Label is the short role name shown to users.
func (r Role) Label() string {
	switch r {
	case RoleCompany:
		return "empresa"
	case RoleTrainee:
		return "personal"
	case RoleInstructor:
		return "instructor"
	default:
		return string(r)
	}
}

// Identity is immutable once built. Attributes is never exposed directly.
type Identity struct {
	ID             string
	Role           Role
	DisplayName    string
	Email          string
	CompanyName    string
	TaxID          string
	DocumentNumber string
	Username       string
	SessionToken   string
	attributes     map[string]string
}

// Fields carries the values used to build an Identity.
type Fields struct {
	ID             string
	Role           Role
	DisplayName    string
	Email          string
	CompanyName    string
	TaxID          string
	DocumentNumber string
	Username       string
	SessionToken   string
	Attributes     map[string]string
}

// New builds an Identity, applying the role placeholder when DisplayName is empty.
func New(f Fields) (Identity, error) {
	role, err := ParseRole(string(f.Role))
	if err != nil {
		return Identity{}, err
	}
	name := f.DisplayName
	if name == "" {
		name = role.Placeholder()
	}
	var attrs map[string]string
	if len(f.Attributes) > 0 {
		attrs = maps.Clone(f.Attributes)
	}
	return Identity{
		ID:             f.ID,
		Role:           role,
		DisplayName:    name,
		Email:          f.Email,
		CompanyName:    f.CompanyName,
		TaxID:          f.TaxID,
		DocumentNumber: f.DocumentNumber,
		Username:       f.Username,
		SessionToken:   f.SessionToken,
		attributes:     attrs,
	}, nil
}

// Attribute returns a pass-through server field.
func (i Identity) Attribute(key string) (string, bool) {
	v, ok := i.attributes[key]
	return v, ok
}

// Attributes returns a copy of the pass-through server fields.
func (i Identity) Attributes() map[string]string {
	if len(i.attributes) == 0 {
		return map[string]string{}
	}
	return maps.Clone(i.attributes)
}

// AttributeKeys returns the pass-through keys in sorted order.
func (i Identity) AttributeKeys() []string {
	keys := make([]string, 0, len(i.attributes))
	for k := range i.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Authenticated reports whether the identity carries a bearer token.
func (i Identity) Authenticated() bool {
	return i.SessionToken != ""
}

// Equal compares two identities field by field, including attributes.
func (i Identity) Equal(other Identity) bool {
	if i.ID != other.ID || i.Role != other.Role || i.DisplayName != other.DisplayName ||
		i.Email != other.Email || i.CompanyName != other.CompanyName || i.TaxID != other.TaxID ||
		i.DocumentNumber != other.DocumentNumber || i.Username != other.Username ||
		i.SessionToken != other.SessionToken {
		return false
	}
	return maps.Equal(i.attributes, other.attributes)
}

// Flags are derived from the role so callers never switch on Role directly.
type Flags struct {
	Authenticated bool
	Company       bool
	Trainee       bool
	Instructor    bool
}

// FlagsFor computes the derived flags; a nil identity yields all false.
func FlagsFor(id *Identity) Flags {
	if id == nil {
		return Flags{}
	}
	return Flags{
		Authenticated: true,
		Company:       id.Role == RoleCompany,
		Trainee:       id.Role == RoleTrainee,
		Instructor:    id.Role == RoleInstructor,
	}
}

type record struct {
	ID             string            `json:"id"`
	Role           string            `json:"tipo"`
	DisplayName    string            `json:"nombre"`
	Email          string            `json:"email"`
	CompanyName    string            `json:"empresa,omitempty"`
	TaxID          string            `json:"ruc,omitempty"`
	DocumentNumber string            `json:"documento,omitempty"`
	Username       string            `json:"username,omitempty"`
	SessionToken   string            `json:"token"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// ErrCorrupt wraps any failure to decode a persisted identity.
var ErrCorrupt = errors.New("identity: corrupt record")

// Marshal encodes the canonical flat representation.
func Marshal(i Identity) ([]byte, error) {
	return json.Marshal(record{
		ID:             i.ID,
		Role:           string(i.Role),
		DisplayName:    i.DisplayName,
		Email:          i.Email,
		CompanyName:    i.CompanyName,
		TaxID:          i.TaxID,
		DocumentNumber: i.DocumentNumber,
		Username:       i.Username,
		SessionToken:   i.SessionToken,
		Attributes:     i.attributes,
	})
}

// Unmarshal decodes a blob produced by Marshal.
func Unmarshal(data []byte) (Identity, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	id, err := New(Fields{
		ID:             rec.ID,
		Role:           Role(rec.Role),
		DisplayName:    rec.DisplayName,
		Email:          rec.Email,
		CompanyName:    rec.CompanyName,
		TaxID:          rec.TaxID,
		DocumentNumber: rec.DocumentNumber,
		Username:       rec.Username,
		SessionToken:   rec.SessionToken,
		Attributes:     rec.Attributes,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return id, nil
}

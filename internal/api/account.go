package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/sstasesores/trainingsoft/internal/identity"
)

const (
	msgPasswordFailed  = "No se pudo cambiar la contraseña"
	msgPasswordChanged = "Contraseña actualizada correctamente"
)

type changePasswordPayload struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	CompanyID       string `json:"idemp"`
	TaxID           string `json:"ruc"`
}

// ChangePassword updates the password of a company account and returns the
// server's confirmation message. Other roles get ErrRoleNotPermitted.
func (c *Client) ChangePassword(ctx context.Context, id identity.Identity, current, next string) (string, error) {
	if !identity.FlagsFor(&id).Company {
		return "", ErrRoleNotPermitted
	}
	if !id.Authenticated() {
		return "", ErrMissingToken
	}
	companyID, ok := id.Attribute("idemp")
	if !ok || companyID == "" {
		companyID = id.ID
	}
	raw, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/change-password",
		token:  id.SessionToken,
		body: changePasswordPayload{
			CurrentPassword: current,
			NewPassword:     next,
			CompanyID:       companyID,
			TaxID:           id.TaxID,
		},
		fallback: msgPasswordFailed,
	})
	if err != nil {
		return "", err
	}

	// A 2xx answer may still carry {"ok":false} or {"status":"error"}.
	v, decodeErr := decodeLoose(raw)
	obj, _ := v.(map[string]any)
	if decodeErr != nil || obj == nil {
		return msgPasswordChanged, nil
	}
	message := stringOnly(obj, "message")
	failed := false
	if okVal, present := obj["ok"].(bool); present && !okVal {
		failed = true
	}
	switch strings.ToLower(stringOnly(obj, "status")) {
	case "error", "fail":
		failed = true
	}
	if failed {
		if message == "" {
			message = msgPasswordFailed
		}
		return "", &Error{Status: http.StatusOK, Message: message}
	}
	if message == "" {
		message = msgPasswordChanged
	}
	return message, nil
}

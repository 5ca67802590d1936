package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProblemCarriesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusUnauthorized, "RUC o contraseña incorrectos")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"title":"Unauthorized","status":401,"message":"RUC o contraseña incorrectos"}`, rec.Body.String())
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("db exploded"), "secret")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")
}

func TestDecodeJSONWrapsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var v map[string]any
	err := DecodeJSON(req, &v)
	require.ErrorIs(t, err, ErrValidation)
}

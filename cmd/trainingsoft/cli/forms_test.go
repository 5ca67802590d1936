package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNumeric(t *testing.T) {
	require.Equal(t, "20123456789", normalizeNumeric(" ２０１２３４５６７８９ "))
	require.Equal(t, "70707070", normalizeNumeric("70.707.070"))
	require.Equal(t, "987654321", normalizeNumeric("987-654 321"))
}

func TestCheckFormPassword(t *testing.T) {
	err := checkForm(passwordForm{Current: "abc123", New: "abc123", Confirm: "abc123"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nueva contraseña debe ser distinta de la actual")

	err = checkForm(passwordForm{Current: "abc123", New: "xyz789", Confirm: "xyz78"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "confirmación no coincide")

	err = checkForm(passwordForm{Current: "abc123", New: "xyz", Confirm: "xyz"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nueva contraseña es demasiado corto")

	require.NoError(t, checkForm(passwordForm{Current: "abc123", New: "xyz789", Confirm: "xyz789"}))
}

func TestNormalizeDocumentKeepsSeparators(t *testing.T) {
	require.Equal(t, "P-123.456", normalizeDocument(" Ｐ－１２３．４５６ "))
	require.Equal(t, "70707070", normalizeDocument("７０７０７０７０"))
}

func TestCheckFormPersonalDocument(t *testing.T) {
	for _, doc := range []string{"X1234567", "1234567", "P-123.456", "12"} {
		require.NoError(t, checkForm(personalLoginForm{Documento: doc}), doc)
	}
	err := checkForm(personalLoginForm{})
	require.Error(t, err)
	require.Equal(t, "documento es obligatorio", err.Error())
}

func TestCheckFormCompanyOnlyRequiresFields(t *testing.T) {
	require.NoError(t, checkForm(companyLoginForm{RUC: "2012345678", Password: "x"}))
	err := checkForm(companyLoginForm{Password: "x"})
	require.Error(t, err)
	require.Equal(t, "RUC es obligatorio", err.Error())
}

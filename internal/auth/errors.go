package auth

import (
	"errors"
)

// Messages surfaced verbatim to the user.
const (
	MsgNetworkUnreachable = "No se puede conectar al servidor. Verifique su conexión a internet y que el servidor esté disponible."
	MsgMalformed          = "Respuesta inválida del servidor."
	MsgLoginFailed        = "Error al iniciar sesión"

	MsgCompanyFallback    = "Credenciales inválidas"
	MsgTraineeFallback    = "Documento no encontrado"
	MsgInstructorFallback = "Usuario o contraseña incorrectos"
)

// Kind classifies a failed login attempt.
type Kind int

const (
	// KindNetworkUnreachable means no response was received.
	KindNetworkUnreachable Kind = iota + 1
	// KindRejected means the server answered with a non-2xx status.
	KindRejected
	// KindMalformed means a 2xx body could not be interpreted.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by login operations. Its Error
// method returns the human-readable message only.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rejected builds a KindRejected error carrying message.
func Rejected(message string, cause error) *Error {
	return &Error{Kind: KindRejected, Message: message, Err: cause}
}

// KindOf extracts the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message returns the text to show for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgLoginFailed
}

package auth

import "github.com/trezcool/escuela/core"

// user facing texts
const (
	MsgEmailRequired      = "El correo electrónico es requerido."
	MsgEmailNotRegistered = "El correo electrónico no está registrado."
	MsgEmailFound         = "Correo Encontrado"
	MsgCheckEmailFailed   = "Error al verificar el correo electrónico."
	MsgPasswordRequired   = "La contraseña es requerida."
	MsgLoginFailed        = "Error al iniciar sesión."
	MsgDataMismatch       = "Datos no coinciden"
	MsgUnexpected         = "Error inesperado"
)

var (
	ErrEmailRequired      = core.NewUserError(MsgEmailRequired)
	ErrEmailNotRegistered = core.NewUserError(MsgEmailNotRegistered)
	ErrPasswordRequired   = core.NewUserError(MsgPasswordRequired)
	ErrDataMismatch       = core.NewUserError(MsgDataMismatch)
)

package controller

import "errors"

var (
	ErrNotLoggedIn     = errors.New("Debes iniciar sesión para crear un reporte.")
	ErrNoSelection     = errors.New("no report is selected")
	ErrNotEditing      = errors.New("image editing is not active")
	ErrNothingToAccept = errors.New("there is no edited image to accept")
	ErrNothingToCopy   = errors.New("there is no social post to copy")
	ErrBusy            = errors.New("the previous request is still running")
	ErrValidation      = errors.New("invalid input")
	ErrNotFound        = errors.New("report not found")
)

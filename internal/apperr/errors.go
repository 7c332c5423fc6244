package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrRuleCycle = errors.New("cyclic rule dependency")
)

package routing

import "errors"

var (
	ErrRouteNotFound        = errors.New("route not defined")
	ErrMissingParameter     = errors.New("missing route parameter")
	ErrNotController        = errors.New("not a controller")
	ErrActionNotFound       = errors.New("controller action not found")
	ErrModelNotFound        = errors.New("model not found")
	ErrMiddlewareGroupCycle = errors.New("middleware group references itself")
	ErrInvalidMiddleware    = errors.New("invalid middleware")
	ErrUnknownMiddleware    = errors.New("unknown middleware")
	ErrDuplicateRouteName   = errors.New("duplicate route name")
)

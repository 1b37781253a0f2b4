package api

import (
	"github.com/go-playground/validator/v10"
)

type Handlers struct {
	deps     *Dependencies
	validate *validator.Validate
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps:     deps,
		validate: validator.New(),
	}
}

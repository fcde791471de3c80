package models

import "github.com/go-playground/validator/v10"

// Shared validator instance. validator.New is expensive enough that the
// package keeps a single cached copy.
var validate = validator.New(validator.WithRequiredStructEnabled())

package domain

import "github.com/go-playground/validator/v10"

// validate caches struct metadata, so a single instance is shared.
var validate = validator.New()

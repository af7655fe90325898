package core

import (
	"errors"
	"net/http"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// WithValidator and WithIdentityProvider are required.
//
// Example:
//
//	c, err := core.New(
//	    core.WithValidator(tokenValidator),
//	    core.WithIdentityProvider(gotrueClient),
//	    core.WithLogger(logger),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Core) validate() error {
	if c.validator == nil {
		return NewError(http.StatusInternalServerError, CodeConfigInvalid,
			"validator is required but not set (use WithValidator option)", nil)
	}
	if c.provider == nil {
		return NewError(http.StatusInternalServerError, CodeConfigInvalid,
			"identity provider is required but not set (use WithIdentityProvider option)", nil)
	}
	return nil
}

// WithValidator sets the token validator. Required.
func WithValidator(validator Validator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithIdentityProvider sets the who-am-I lookup. Required.
func WithIdentityProvider(provider IdentityProvider) Option {
	return func(c *Core) error {
		if provider == nil {
			return errors.New("identity provider cannot be nil")
		}
		c.provider = provider
		return nil
	}
}

// WithLogger sets an optional logger for the Core.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

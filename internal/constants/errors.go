package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIEndpoint     = errors.New("no API endpoint configured, set 'api' in the config file or pass --api")
	ErrInvalidPageSize   = errors.New("page size must be between 1 and 200")
	ErrInvalidOutput     = errors.New("output must be one of table, json, yaml")
	ErrUnknownConfigKey  = errors.New("unknown configuration key")
	ErrInvalidPagination = errors.New("pagination must be cursor or offset")
	ErrNegativeValue     = errors.New("value must not be negative")
)

// Session errors.
var (
	ErrNotLoggedIn      = errors.New("not logged in, run 'travio login' first")
	ErrLoginFailed      = errors.New("login failed")
	ErrRegisterFailed   = errors.New("registration failed")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name is required")
)

// Lookup errors.
var (
	ErrStationNotFound = errors.New("station not found")
)

package constants

import "errors"

// Token errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
	ErrMissingToken      = errors.New("login response did not include an access token")
)

// Credential store errors.
var (
	ErrUnknownStore      = errors.New("unknown credential store")
	ErrStoreURLRequired  = errors.New("credential store URL is required")
	ErrEmptyPersistedKey = errors.New("persistence key must not be empty")
)

// CLI errors.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required (use --api or 'ldesk config set api URL')")
	ErrUsernameRequired    = errors.New("username is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrInvalidQueryParam   = errors.New("invalid query parameter, expected key=value")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrRequestFailed       = errors.New("request failed")
)

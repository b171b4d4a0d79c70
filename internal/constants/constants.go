package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and credential files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the per-attempt timeout used when neither the
	// call nor the client configures one.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout bounds the best-effort logout call.
	ShortHTTPTimeout = 10 * time.Second

	// PersistenceTimeout bounds a single read or write of the durable mirror.
	PersistenceTimeout = 5 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the retry budget used when neither the call nor the
	// client configures one.
	DefaultRetryMax = 3

	// DefaultRetryWaitMax is the backoff cap used when only RetryWaitMin is set.
	DefaultRetryWaitMax = 10 * time.Second
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second

	// TokenPartsCount is the expected number of parts in a JWT token.
	TokenPartsCount = 3
)

// Default API paths.
const (
	// LoginPath exchanges credentials for a session.
	LoginPath = "/auth/login"

	// LogoutPath invalidates the session on the server.
	LogoutPath = "/auth/logout"

	// RefreshPath exchanges a refresh token for a new token pair.
	RefreshPath = "/auth/refresh"

	// HealthPath is the unauthenticated diagnostics endpoint.
	HealthPath = "/health"
)

// Header names and values.
const (
	// HeaderRequestID carries the per-call request identifier.
	HeaderRequestID = "X-Request-ID"

	// ContentTypeJSON is the media type for JSON bodies.
	ContentTypeJSON = "application/json"

	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "ledgerdesk-go/1.0"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// Credential store backends selectable from the CLI.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreNATS   = "nats"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Default backend locations.
const (
	// ConfigDirName is the directory under $HOME holding CLI state.
	ConfigDirName = ".ldesk"

	// CredentialsFileName is the YAML credential mirror inside ConfigDirName.
	CredentialsFileName = "credentials.yml"

	// CredentialsDBName is the SQLite credential mirror inside ConfigDirName.
	CredentialsDBName = "credentials.db"

	// DefaultNATSBucket is the JetStream key-value bucket for sessions.
	DefaultNATSBucket = "ldesk_credentials"

	// DefaultRedisPrefix namespaces session keys in Redis.
	DefaultRedisPrefix = "ldesk:credentials:"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// TokenPreviewLength is how many token characters status output reveals.
	TokenPreviewLength = 12
)

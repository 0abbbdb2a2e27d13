package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Outbound payment gateway calls use a single fixed timeout and no retries.
// A timeout surfaces as a hard failure to the caller.
const PaymentGatewayTimeout = 15 * time.Second

// Default rate limiting
const (
	DefaultRateLimitPerMin   = 60
	MagicLinkRequestsPerHour = 5
)

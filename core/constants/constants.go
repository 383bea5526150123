package constants

import "time"

// Timeouts
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultTimeout        = 30 * time.Second
	NotifierTimeout       = 15 * time.Second
	ShutdownTimeout       = 10 * time.Second
)

// Database
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Redis keys
const (
	RedisKeyWaitlistConfig  = "waitlist:config:"
	RedisKeyOccurrenceLock  = "waitlist:lock:occurrence:"
	RedisKeyWaitlistSummary = "waitlist:summary:"
	WaitlistConfigCacheTTL  = 10 * time.Minute
)

// Locks
const (
	LockTTL          = 30 * time.Second
	LockMaxAttempts  = 5
	LockInitialDelay = 20 * time.Millisecond
	LockMaxDelay     = 500 * time.Millisecond
)

// Context keys
const (
	ContextTokenData = "token_data"
)

// Token scopes
const (
	ScopeTokenAccess       = "access"
	ScopeTokenOfferConfirm = "offer_confirm"
)

// Queue
const (
	TaskOfferExpire   = "waitlist:offer:expire"
	TaskWaitlistSweep = "waitlist:sweep"
	QueueOffers       = "offers"
	QueueDefault      = "default"
)

// Pagination
const (
	DefaultPageNumber = 1
	DefaultPageSize   = 20
	MaxPageSize       = 100
)

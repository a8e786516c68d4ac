// Package constants provides shared constants used throughout the legisync codebase.
// This includes feed endpoints, timeouts, limits and file permissions that
// should be consistent across the importer, the stores and the CLI.
package constants

import "time"

// Feed constants describe the LEGISinfo XML endpoints.
const (
	// SessionBillsURL is the list endpoint template. Placeholders are
	// parliament number, session number and 1-based page index.
	SessionBillsURL = "http://parl.gc.ca/LegisInfo/Home.aspx?language=E&Parl=%d&Ses=%d&Page=%d&Mode=1&download=xml"

	// BillDetailsURL is the single-bill endpoint template keyed by legisinfo id.
	BillDetailsURL = "http://www.parl.gc.ca/LegisInfo/BillDetails.aspx?Language=E&Mode=1&billId=%d&download=xml"

	// FeedPageSize is the maximum number of bills the list endpoint returns per page.
	// A page shorter than this is the only end-of-data signal.
	FeedPageSize = 500

	// UserAgent is sent with every feed request.
	UserAgent = "legisync/1.0"
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for feed requests
	DefaultHTTPTimeout = 30 * time.Second

	// ImportTimeout bounds a single scheduled session import
	ImportTimeout = 30 * time.Minute

	// DefaultImportInterval is the default interval between automatic imports
	DefaultImportInterval = 1 * time.Hour

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// LockTTL is how long an import lock is held before it expires on its own
	LockTTL = 45 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Storage constants
const (
	// DefaultDriver is the catalog store used when none is configured
	DefaultDriver = "sqlite3"

	// DefaultDatabasePath is the default SQLite catalog location
	DefaultDatabasePath = "~/.legisync/catalog.db"

	// DefaultConfigPath is the default path for configuration files
	DefaultConfigPath = "~/.legisync.yaml"

	// LockKeyPrefix prefixes per-session import lock keys
	LockKeyPrefix = "legisync:import:"

	// DefaultKafkaTopic receives sponsor activity events
	DefaultKafkaTopic = "legisync.activity"
)

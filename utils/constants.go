package utils

import (
	"time"
)

// Site routing constants
const (
	// DefaultCitySlug is used whenever a visitor's city cannot be resolved
	DefaultCitySlug = "moskva"

	// DefaultServiceSlug is the landing service for a city
	DefaultServiceSlug = "internet"

	// UserCityCookie stores the URL-encoded display name of the chosen city
	UserCityCookie = "user-city"

	// SupportOnlyCookie marks a visitor who identified as an existing subscriber
	SupportOnlyCookie = "support-only"

	// UserCityCookieMaxAge is one year in seconds
	UserCityCookieMaxAge = 365 * 24 * 60 * 60

	// CompletionPath is where every lead-capture flow ends
	CompletionPath = "/thank-you"
)

// Category ids understood by the storefront
const (
	CategoryAll              = "all"
	CategoryInternet         = "internet"
	CategoryInternetTV       = "internet-tv"
	CategoryInternetMobile   = "internet-mobile"
	CategoryInternetTVMobile = "internet-tv-mobile"
)

// ServiceCategories lists the composite category ids in display order
var ServiceCategories = []string{
	CategoryInternet,
	CategoryInternetTV,
	CategoryInternetMobile,
	CategoryInternetTVMobile,
}

// Token and session time constants
const (
	// AdminSessionTTL is the lifetime of an admin session and its access token
	AdminSessionTTL = 12 * time.Hour

	// WizardStateTTL is how long an idle order wizard is kept
	WizardStateTTL = 2 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Admin lead journal page sizes
const (
	LeadJournalPageSize    = 50
	LeadJournalMaxPageSize = 200
)

// Import constants
const (
	ImportChunkSize      = 1000
	ImportChunkDelay     = 1000 * time.Millisecond
	ImportRequestTimeout = 30 * time.Second
	ImportMaxErrors      = 10
)

package config

import "time"

const (
	// Pagination
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// API keys
	APIKeyPrefix       = "fb_"
	APIKeyBytes        = 32
	APIKeyDisplayLen   = 10
	DefaultKeyCacheTTL = 5 * time.Minute

	// Categories
	DefaultCategoryIcon = "tag"

	// Operator sessions
	DefaultTokenTTL = 12 * time.Hour
	TokenIssuer     = "feedback-service"
)

// CategoryPalette is cycled through when a category is created without a color.
var CategoryPalette = []string{
	"#3b82f6", // blue
	"#10b981", // green
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#14b8a6", // teal
	"#6b7280", // gray
}

const DefaultPriority = "medium"

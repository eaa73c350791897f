package cli

// Default values for CLI flags and formatted output.
const (
	// DefaultPage is the first catalog page.
	DefaultPage = 1
	// MaxDescriptionLength is the maximum length of a trainer description in listings.
	MaxDescriptionLength = 50
	// MaxNameLength is the maximum length of a trainer name in tables.
	MaxNameLength = 40
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)

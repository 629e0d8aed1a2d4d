package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Finished successfully
	SymbolFail     = "✗" // Failed
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done, used in lists
)

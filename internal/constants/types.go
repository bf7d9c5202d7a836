package constants

// Tool categories used for routing and filtering.
const (
	CategoryUtility     = "utility"
	CategoryNetwork     = "network"
	CategorySystem      = "system"
	CategoryData        = "data"
	CategoryIntegration = "integration"
)

// ValidCategory reports whether value is a known tool category.
func ValidCategory(value string) bool {
	switch value {
	case CategoryUtility, CategoryNetwork, CategorySystem, CategoryData, CategoryIntegration:
		return true
	}
	return false
}

// Idempotency cache key strategies.
const (
	CacheKeyStrategyAuto          = "auto"
	CacheKeyStrategyCorrelationID = "correlation_id"
	CacheKeyStrategyArgumentsHash = "arguments_hash"
)

// LocatorPrefixBuiltin namespaces locators served by compiled-in tools.
const LocatorPrefixBuiltin = "builtin."

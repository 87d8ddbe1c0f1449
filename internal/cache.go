package internal

// Cache key prefixes
const (
	CacheKeyCertificateLookup = "certificate_lookup"
)

package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("host", "H", "", "Host to bind the HTTP server to")
	flags.IntP("port", "p", 0, "Port to bind the HTTP server to")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.StringP("data-dir", "d", "", "Directory for the persistent cache and index scratch space")
	flags.StringP("sync-url", "s", "", "Catalog sync endpoint URL (empty disables sync)")
	flags.Duration("sync-interval", 0, "Interval between catalog re-syncs")
	flags.Int("max-results", 0, "Maximum number of results returned per query")
}

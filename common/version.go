package common

// Set at build time via -ldflags "-X github.com/httpecho/httpecho/common.Version=..."
var (
	Version   = "dev"
	CommitSha = "none"
)

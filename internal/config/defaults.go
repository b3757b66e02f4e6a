package config

// Dataset defaults.
const (
	DefaultDatasetPath   = "clonepulse/fetch_clones.json"
	DefaultBadgeDir      = "clonepulse"
	DefaultDatasetBackup = true
)

// GitHub API defaults.
const (
	DefaultGitHubAPIBase  = "https://api.github.com"
	DefaultHTTPTimeoutSec = 30
)

// Report defaults.
const (
	DefaultReportWeeks  = 12
	DefaultReportOutput = "clonepulse/weekly_clones.html"
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// OTel defaults. Export stays off until an endpoint is configured.
const (
	DefaultOTelEndpoint    = ""
	DefaultOTelInsecure    = false
	DefaultOTelSampleRatio = 0.0
	DefaultOTelEnvironment = ""
)

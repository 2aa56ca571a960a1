package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "solscan"

	// ConfigFileName is the default config file name
	ConfigFileName = "solscan.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "SOLSCAN"

	// ServiceName is reported by the health endpoint
	ServiceName = "ml-vulnerability-detection"
)

// Contract file constants
const (
	// SolidityExtension is the extension of scanned contract files
	SolidityExtension = ".sol"

	// UnknownContractName is used when a request carries no contract name
	UnknownContractName = "Unknown"
)

// Output format constants
const (
	OutputFormatText  = "text"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatCSV   = "csv"
	OutputFormatSARIF = "sarif"
)

// Storage driver constants
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mcp    bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithStdioMCP runs the MCP server on stdin/stdout instead of the HTTP API.
// The watcher and sync coordinator run either way.
func WithStdioMCP() Option {
	return func(a *application) {
		a.mcp = true
	}
}

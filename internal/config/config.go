package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/packagebot/internal/pipeline"
	"github.com/nao1215/packagebot/internal/wiki"
)

// Default configuration values.
const (
	// DefaultTree is the package tree scanned when none is given.
	DefaultTree = "/usr/portage"

	// DefaultEndpoint is the wiki that receives the pages.
	DefaultEndpoint = "http://docs.funtoo.org"

	// DefaultUserAgent identifies packagebot in HTTP requests.
	DefaultUserAgent = "Funtoo/Packagebot"

	// DefaultJobs is the number of harvest workers.
	DefaultJobs = 1

	// DefaultStrategy is the work distribution strategy.
	DefaultStrategy = string(pipeline.StrategyQueue)

	// DefaultTimeout bounds every wiki API round trip.
	DefaultTimeout = wiki.DefaultTimeout

	// DefaultTitleWindow is how many titles the duplicate guard remembers.
	DefaultTitleWindow = pipeline.DefaultTitleWindow

	// AppName is the application name used for XDG directory paths.
	AppName = "packagebot"
)

// Config holds all configuration options for a packagebot run.
// It is populated from defaults, the config file, the environment and CLI
// flags, in increasing order of precedence.
type Config struct {
	// Tree is the root of the package tree to scan.
	Tree string

	// Endpoint is the wiki base URL. The API lives at api.php below it.
	Endpoint string

	// User and Password are the wiki credentials.
	User     string
	Password string

	// UserAgent is the User-Agent header sent with every API request.
	UserAgent string

	// Jobs is the number of harvest workers.
	Jobs int

	// Strategy is "queue" or "partition".
	Strategy string

	// Timeout bounds each wiki API round trip.
	Timeout time.Duration

	// Proxy is an optional SOCKS5 proxy in host:port form for wiki traffic.
	Proxy string

	// TitleWindow is how many page titles the duplicate guard remembers.
	TitleWindow int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .packagebot in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// EnvFile is the dotenv file read for credentials. A missing file is
	// not an error.
	EnvFile string

	// JSONReport selects the JSON run summary. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown run summary.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// MetricsFile, when set, receives Prometheus metrics in text format
	// after the run.
	MetricsFile string

	// Trace enables OpenTelemetry tracing.
	Trace bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Tree:        DefaultTree,
		Endpoint:    DefaultEndpoint,
		UserAgent:   DefaultUserAgent,
		Jobs:        DefaultJobs,
		Strategy:    DefaultStrategy,
		Timeout:     DefaultTimeout,
		TitleWindow: DefaultTitleWindow,
		EnvFile:     DefaultEnvFile,
		DBDir:       XDGDataDir(),
		SaveHistory: true,
	}
}

// XDGDataDir returns the XDG data directory for packagebot.
// On Linux: ~/.local/share/packagebot
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for packagebot.
// On Linux: ~/.config/packagebot
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.User == "" || c.Password == "" {
		return ErrNoCredentials
	}
	if c.Tree == "" {
		return ErrNoTree
	}
	if c.Jobs < 1 {
		return ErrInvalidJobs
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if u, err := url.Parse(c.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidEndpoint
	}
	if _, err := pipeline.ParseStrategy(c.Strategy); err != nil {
		return ErrInvalidStrategy
	}
	if c.Proxy != "" && !wiki.IsValidProxyAddress(c.Proxy) {
		return ErrInvalidProxyAddress
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.TitleWindow < 1 {
		return ErrInvalidTitleWindow
	}
	return nil
}

// WikiConfig returns the wiki client settings.
func (c *Config) WikiConfig() wiki.Config {
	return wiki.Config{
		Endpoint:  c.Endpoint,
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		Proxy:     c.Proxy,
	}
}

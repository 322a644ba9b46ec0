package config

const (
	defaultOutputDir      = "~/.local/share/catkeygen/exports"
	defaultLogDir         = "~/.local/share/catkeygen/logs"
	defaultHistoryPath    = "~/.local/share/catkeygen/history.db"
	defaultNYTBaseURL     = "https://api.nytimes.com/svc/books/v3"
	defaultRequestTimeout = 15
	defaultPageTimeout    = 20
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1
	defaultMaxBackoff     = 30
	defaultSearchPauseMS  = 500
	defaultSMTPServer     = "smtp.gmail.com"
	defaultSMTPPort       = 587
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// defaultListNames are the weekly lists processed when none are
// configured.
var defaultListNames = []string{
	"hardcover-fiction",
	"hardcover-nonfiction",
	"picture-books",
	"childrens-middle-grade-hardcover",
	"young-adult-hardcover",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		NYT: NYT{
			BaseURL:        defaultNYTBaseURL,
			ListNames:      append([]string(nil), defaultListNames...),
			RequestTimeout: defaultRequestTimeout,
			MaxRetries:     defaultMaxRetries,
		},
		Catalog: Catalog{
			PageTimeout:    defaultPageTimeout,
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     defaultMaxBackoff,
			SearchPauseMS:  defaultSearchPauseMS,
		},
		Email: Email{
			SMTPServer: defaultSMTPServer,
			SMTPPort:   defaultSMTPPort,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNYT()
	c.normalizeCatalog()
	c.normalizeEmail()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNYT() {
	if c.NYT.APIKey == "" {
		if value, ok := os.LookupEnv("CATKEYGEN_NYT_API_KEY"); ok {
			c.NYT.APIKey = strings.TrimSpace(value)
		}
	}
	c.NYT.BaseURL = strings.TrimRight(strings.TrimSpace(c.NYT.BaseURL), "/")
	if c.NYT.BaseURL == "" {
		c.NYT.BaseURL = defaultNYTBaseURL
	}
	names := c.NYT.ListNames[:0]
	for _, name := range c.NYT.ListNames {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	c.NYT.ListNames = names
	if c.NYT.RequestTimeout <= 0 {
		c.NYT.RequestTimeout = defaultRequestTimeout
	}
	if c.NYT.MaxRetries < 0 {
		c.NYT.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeCatalog() {
	if c.Catalog.BaseURL == "" {
		if value, ok := os.LookupEnv("CATKEYGEN_CATALOG_BASE_URL"); ok {
			c.Catalog.BaseURL = value
		}
	}
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.PageTimeout <= 0 {
		c.Catalog.PageTimeout = defaultPageTimeout
	}
	if c.Catalog.MaxRetries < 0 {
		c.Catalog.MaxRetries = defaultMaxRetries
	}
	if c.Catalog.InitialBackoff <= 0 {
		c.Catalog.InitialBackoff = defaultInitialBackoff
	}
	if c.Catalog.MaxBackoff < c.Catalog.InitialBackoff {
		c.Catalog.MaxBackoff = defaultMaxBackoff
	}
	if c.Catalog.SearchPauseMS < 0 {
		c.Catalog.SearchPauseMS = defaultSearchPauseMS
	}
}

func (c *Config) normalizeEmail() {
	if c.Email.Password == "" {
		if value, ok := os.LookupEnv("CATKEYGEN_SMTP_PASSWORD"); ok {
			c.Email.Password = value
		}
	}
	c.Email.SMTPServer = strings.TrimSpace(c.Email.SMTPServer)
	if c.Email.SMTPServer == "" {
		c.Email.SMTPServer = defaultSMTPServer
	}
	if c.Email.SMTPPort <= 0 {
		c.Email.SMTPPort = defaultSMTPPort
	}
	c.Email.Sender = strings.TrimSpace(c.Email.Sender)
	recipients := c.Email.Recipients[:0]
	for _, addr := range c.Email.Recipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	c.Email.Recipients = recipients
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

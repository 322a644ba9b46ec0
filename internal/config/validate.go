package config

import (
	"fmt"
	"strings"

	"catkeygen/internal/services"
)

// Validate ensures the configuration is usable. Violations are tagged
// with the configuration sentinel so callers can abort before any
// resolution work begins.
func (c *Config) Validate() error {
	if err := c.validateNYT(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNYT() error {
	if c.NYT.APIKey == "" {
		return configError("nyt.api_key is required. Set CATKEYGEN_NYT_API_KEY or edit the config file (create with 'catkeygen config init')")
	}
	if len(c.NYT.ListNames) == 0 {
		return configError("nyt.list_names must name at least one bestseller list")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return configError("catalog.base_url is required. Set CATKEYGEN_CATALOG_BASE_URL or edit the config file")
	}
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return configError(fmt.Sprintf("catalog.base_url %q must start with http:// or https://", c.Catalog.BaseURL))
	}
	return nil
}

func (c *Config) validateEmail() error {
	if !c.Email.Enabled {
		return nil
	}
	if c.Email.Sender == "" {
		return configError("email.sender must be set when email.enabled is true")
	}
	if c.Email.Password == "" {
		return configError("email.password must be set when email.enabled is true (or set CATKEYGEN_SMTP_PASSWORD)")
	}
	if len(c.Email.Recipients) == 0 {
		return configError("email.recipients must list at least one address when email.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return configError(fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return configError(fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}
	return nil
}

func configError(message string) error {
	return services.Wrap(services.ErrConfiguration, "config", "", message, nil)
}

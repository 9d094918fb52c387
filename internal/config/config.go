package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Payment provider
	CheckoutBaseURL     string
	CheckoutAPIKey      string
	WebhookSecret       string
	UnitAmountCents     int64
	Currency            string
	ProductLabel        string
	ResetPeriodOnUnlock bool

	// Checkout URL cache
	CheckoutCacheSize int
	CheckoutCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Archive backend selection (archive-worker)
	ArchiveBackend string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		CheckoutBaseURL:     getEnv("CHECKOUT_BASE_URL", ""),
		CheckoutAPIKey:      getEnv("CHECKOUT_API_KEY", ""),
		WebhookSecret:       getEnv("WEBHOOK_SECRET", ""),
		UnitAmountCents:     int64(getEnvInt("UNIT_AMOUNT_CENTS", 100)),
		Currency:            getEnv("CURRENCY", "usd"),
		ProductLabel:        getEnv("PRODUCT_LABEL", "Budget Wizard full report"),
		ResetPeriodOnUnlock: getEnvBool("RESET_PERIOD_ON_UNLOCK", true),

		CheckoutCacheSize: getEnvInt("CHECKOUT_CACHE_SIZE", 1000),
		CheckoutCacheTTL:  getEnvDuration("CHECKOUT_CACHE_TTL", 30*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetwizard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "paywall_records"),

		ArchiveBackend: getEnv("ARCHIVE_BACKEND", "memory"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate checkout configuration: the unlock flow only works with
	// both a provider URL and an API key.
	if c.CheckoutBaseURL != "" {
		if parsedURL, err := url.Parse(c.CheckoutBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid checkout base URL '%s': %v", c.CheckoutBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid checkout base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
		if c.CheckoutAPIKey == "" {
			errors = append(errors, "checkout API key cannot be empty when a checkout base URL is provided")
		}
		if c.WebhookSecret == "" {
			errors = append(errors, "webhook secret cannot be empty when checkout is configured")
		}
	}

	if c.UnitAmountCents < 1 {
		errors = append(errors, fmt.Sprintf("invalid unit amount %d: must be at least 1 cent", c.UnitAmountCents))
	}
	if len(c.Currency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter code", c.Currency))
	}

	if c.CheckoutCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid checkout cache size %d: must be at least 1", c.CheckoutCacheSize))
	}
	if c.CheckoutCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid checkout cache TTL %v: must be at least 1 second", c.CheckoutCacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate archive backend
	validBackends := []string{"memory", "sheets"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.ArchiveBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid archive backend '%s': must be one of %v", c.ArchiveBackend, validBackends))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Package config loads service configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/yourorg/sips-gateway/internal/merchant"
	"github.com/yourorg/sips-gateway/internal/protocol"
	"github.com/yourorg/sips-gateway/internal/transport"
	"github.com/yourorg/sips-gateway/internal/transport/circuitbreaker"
)

// Config holds all configuration for the gateway service
type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Merchant  MerchantConfig
}

// ServerConfig holds HTTP server and observability settings
type ServerConfig struct {
	Addr              string
	LogLevel          string
	TraceStdout       bool
	JournalCapacity   int
	PaymentSchemaPath string // overrides the built-in payment request schema
}

// TransportConfig holds how the gateway is reached
type TransportConfig struct {
	Kind            string
	RequestBin      string
	ResponseBin     string
	BaseURL         string
	CallTimeout     time.Duration
	BreakerEnabled  bool
	BreakerFailures int
	BreakerReset    time.Duration
}

// MerchantConfig holds the merchant seeded at startup
type MerchantConfig struct {
	Key                  string // route identifier, /merchants/:merchant_id
	MerchantID           string
	MerchantCountry      string
	CurrencyCode         string
	Pathfile             string
	Language             string
	PaymentMeans         string
	HeaderFlag           bool
	NormalReturnURL      string
	CancelReturnURL      string
	AutomaticResponseURL string
}

// Load reads the given .env files (".env" when none are named) and then the
// process environment. Missing files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading env file: %w", err)
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Addr:              getEnv("HTTP_ADDR", ":8080"),
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			TraceStdout:       getBool("TRACE_STDOUT", false, &errs),
			JournalCapacity:   getInt("JOURNAL_CAPACITY", 10000, &errs),
			PaymentSchemaPath: getEnv("PAYMENT_SCHEMA_PATH", ""),
		},
		Transport: TransportConfig{
			Kind:            getEnv("SIPS_TRANSPORT", transport.KindExec),
			RequestBin:      getEnv("SIPS_REQUEST_BIN", "/opt/sips/bin/static/request"),
			ResponseBin:     getEnv("SIPS_RESPONSE_BIN", "/opt/sips/bin/static/response"),
			BaseURL:         getEnv("SIPS_BASE_URL", ""),
			CallTimeout:     getDuration("SIPS_CALL_TIMEOUT", 30*time.Second, &errs),
			BreakerEnabled:  getBool("SIPS_BREAKER_ENABLED", true, &errs),
			BreakerFailures: getInt("SIPS_BREAKER_FAILURES", 3, &errs),
			BreakerReset:    getDuration("SIPS_BREAKER_RESET", 30*time.Second, &errs),
		},
		Merchant: MerchantConfig{
			Key:                  getEnv("MERCHANT_KEY", "default"),
			MerchantID:           getEnv("SIPS_MERCHANT_ID", ""),
			MerchantCountry:      getEnv("SIPS_MERCHANT_COUNTRY", "fr"),
			CurrencyCode:         getEnv("SIPS_CURRENCY_CODE", "978"),
			Pathfile:             getEnv("SIPS_PATHFILE", "/opt/sips/param/pathfile"),
			Language:             getEnv("SIPS_LANGUAGE", "fr"),
			PaymentMeans:         getEnv("SIPS_PAYMENT_MEANS", "CB,2,VISA,2,MASTERCARD,2"),
			HeaderFlag:           getBool("SIPS_HEADER_FLAG", true, &errs),
			NormalReturnURL:      getEnv("SIPS_NORMAL_RETURN_URL", ""),
			CancelReturnURL:      getEnv("SIPS_CANCEL_RETURN_URL", ""),
			AutomaticResponseURL: getEnv("SIPS_AUTOMATIC_RESPONSE_URL", ""),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// TransportConfig converts the transport section for transport.New.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		Kind:           c.Transport.Kind,
		RequestBin:     c.Transport.RequestBin,
		ResponseBin:    c.Transport.ResponseBin,
		BaseURL:        c.Transport.BaseURL,
		Timeout:        c.Transport.CallTimeout,
		BreakerEnabled: c.Transport.BreakerEnabled,
		Breaker: circuitbreaker.Config{
			FailureThreshold: c.Transport.BreakerFailures,
			ResetTimeout:     c.Transport.BreakerReset,
		},
	}
}

// GatewayArgs is the base argument set of every call for the seeded merchant.
func (c *Config) GatewayArgs() protocol.Args {
	m := c.Merchant
	return protocol.Args{
		"merchant_id":            m.MerchantID,
		"merchant_country":       m.MerchantCountry,
		"pathfile":               m.Pathfile,
		"language":               m.Language,
		"payment_means":          m.PaymentMeans,
		"header_flag":            m.HeaderFlag,
		"normal_return_url":      m.NormalReturnURL,
		"cancel_return_url":      m.CancelReturnURL,
		"automatic_response_url": m.AutomaticResponseURL,
	}
}

// MerchantConfig returns the merchant seeded into the repository at startup.
func (c *Config) MerchantConfig() merchant.Config {
	return merchant.Config{
		ID:              c.Merchant.Key,
		Gateway:         c.GatewayArgs(),
		DefaultCurrency: c.Merchant.CurrencyCode,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return v
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Daraja   DarajaConfig
	Checkout CheckoutConfig
	Admin    AdminConfig
	Events   EventsConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DarajaConfig holds the Safaricom Daraja API credentials. BaseURL is
// normally derived from Sandbox; setting it explicitly overrides both
// endpoints (used by tests).
type DarajaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Sandbox        bool
	Debug          bool
	BaseURL        string
	// CallbackBaseURL is the public origin Safaricom delivers result
	// callbacks to, e.g. https://shop.example.com
	CallbackBaseURL string
}

type CheckoutConfig struct {
	// WaitPageURL is where the buyer's browser is parked while polling,
	// and ReceiptPageURL where it is sent once the payment settles.
	// Order id and key are appended as query args.
	WaitPageURL    string
	ReceiptPageURL string
	VerifyTimeout  time.Duration
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash of the admin password. Empty disables
	// the admin API entirely.
	PasswordHash string
	JWT          JWTConfig
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// EventsConfig enables the Kafka payment-event sink when brokers are set.
type EventsConfig struct {
	KafkaBrokers   []string
	CompletedTopic string
	FailedTopic    string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getenv("PORT", "8088"),
			Env:          getenv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 40 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getenv("DATABASE_DSN", "pesagate:pesagate@tcp(localhost:3306)/pesagate?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Daraja: DarajaConfig{
			ConsumerKey:     os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:  os.Getenv("MPESA_CONSUMER_SECRET"),
			Shortcode:       os.Getenv("MPESA_SHORTCODE"),
			Passkey:         os.Getenv("MPESA_PASSKEY"),
			Sandbox:         getbool("MPESA_SANDBOX", true),
			Debug:           getbool("MPESA_DEBUG", false),
			CallbackBaseURL: os.Getenv("MPESA_CALLBACK_BASE_URL"),
		},
		Checkout: CheckoutConfig{
			WaitPageURL:    getenv("CHECKOUT_WAIT_URL", "/checkout/wait"),
			ReceiptPageURL: getenv("CHECKOUT_RECEIPT_URL", "/checkout/received"),
			VerifyTimeout:  120 * time.Second,
		},
		Admin: AdminConfig{
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			JWT: JWTConfig{
				Secret: getenv("ADMIN_JWT_SECRET", "change-me-in-production"),
				Expiry: time.Hour,
				Issuer: "pesagate",
			},
		},
		Events: EventsConfig{
			KafkaBrokers:   getlist("KAFKA_BROKERS"),
			CompletedTopic: getenv("KAFKA_TOPIC_PAYMENT_COMPLETED", "payment.completed"),
			FailedTopic:    getenv("KAFKA_TOPIC_PAYMENT_FAILED", "payment.failed"),
		},
	}
}

// Setting keys the admin API manages. Values stored in system_settings
// override the environment at boot.
const (
	SettingConsumerKey     = "mpesa_consumer_key"
	SettingConsumerSecret  = "mpesa_consumer_secret"
	SettingShortcode       = "mpesa_shortcode"
	SettingPasskey         = "mpesa_passkey"
	SettingSandbox         = "mpesa_sandbox"
	SettingDebug           = "mpesa_debug"
	SettingCallbackBaseURL = "mpesa_callback_base_url"
)

func KnownSettingKeys() []string {
	return []string{
		SettingConsumerKey,
		SettingConsumerSecret,
		SettingShortcode,
		SettingPasskey,
		SettingSandbox,
		SettingDebug,
		SettingCallbackBaseURL,
	}
}

// ApplySettings overlays stored admin settings onto the Daraja config.
// Unknown keys and empty values are ignored.
func (c *Config) ApplySettings(settings map[string]string) {
	for key, value := range settings {
		if value == "" {
			continue
		}
		switch key {
		case SettingConsumerKey:
			c.Daraja.ConsumerKey = value
		case SettingConsumerSecret:
			c.Daraja.ConsumerSecret = value
		case SettingShortcode:
			c.Daraja.Shortcode = value
		case SettingPasskey:
			c.Daraja.Passkey = value
		case SettingSandbox:
			c.Daraja.Sandbox = truthy(value)
		case SettingDebug:
			c.Daraja.Debug = truthy(value)
		case SettingCallbackBaseURL:
			c.Daraja.CallbackBaseURL = value
		}
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return truthy(v)
	}
	return b
}

func getlist(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

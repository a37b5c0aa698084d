package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Caps holds the daily sending limits imposed by the upstream mail provider.
// The per-category caps carve up the shared total; a category with room under
// its own cap can still be blocked by the total.
type Caps struct {
	Evaluation  int
	Certificate int
	Total       int
}

// SES holds the AWS SES v2 transport settings.
type SES struct {
	Region      string
	AccessKey   string
	SecretKey   string
	FromAddress string
	FromName    string
}

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Daily sending budget
	Caps Caps

	// Delivery
	RetryCeiling int           // attempts before an item is terminally failed
	SendInterval time.Duration // pacing between sends during a drain
	SendTimeout  time.Duration // bound on a single send attempt
	DrainTimeout time.Duration // bound on a whole drain pass; must cover Caps.Total paced sends

	// Reference timezone for the daily cap window
	Location *time.Location

	// Scheduled catch-up drain (cron expression); empty disables the trigger
	DrainSchedule string

	// Mail transport
	SES SES

	// Evaluation links point here
	SiteURL string

	// Certificate renderer collaborator
	CertRendererURL     string
	CertRendererTimeout time.Duration
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	tz := getEnv("QUEUE_TIMEZONE", "Asia/Manila")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		Caps: Caps{
			Evaluation:  getInt("DAILY_CAP_EVALUATION", 40),
			Certificate: getInt("DAILY_CAP_CERTIFICATE", 80),
			Total:       getInt("DAILY_CAP_TOTAL", 100),
		},

		RetryCeiling: getInt("RETRY_CEILING", 3),
		SendInterval: getDuration("SEND_INTERVAL", 500*time.Millisecond),
		SendTimeout:  getDuration("SEND_TIMEOUT", 30*time.Second),
		DrainTimeout: getDuration("DRAIN_TIMEOUT", 0),

		Location: loc,

		DrainSchedule: getEnv("DRAIN_SCHEDULE", "0 * * * *"),

		SES: SES{
			Region:      getEnv("SES_REGION", "ap-southeast-1"),
			AccessKey:   os.Getenv("SES_ACCESS_KEY"),
			SecretKey:   os.Getenv("SES_SECRET_KEY"),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "no-reply@petros-global.com"),
			FromName:    getEnv("MAIL_FROM_NAME", "Petrosphere"),
		},

		SiteURL: getEnv("SITE_URL", "http://localhost:3000"),

		CertRendererURL:     os.Getenv("CERT_RENDERER_URL"),
		CertRendererTimeout: getDuration("CERT_RENDERER_TIMEOUT", 20*time.Second),
	}

	if cfg.DrainTimeout == 0 {
		// Worst case: a full budget of paced sends, plus one send still in
		// flight when the budget runs out.
		cfg.DrainTimeout = time.Duration(cfg.Caps.Total)*cfg.SendInterval + cfg.SendTimeout + 30*time.Second
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Caps.Evaluation <= 0 || c.Caps.Certificate <= 0 || c.Caps.Total <= 0 {
		return fmt.Errorf("daily caps must be positive: %+v", c.Caps)
	}
	if c.RetryCeiling < 1 {
		return fmt.Errorf("RETRY_CEILING must be at least 1, got %d", c.RetryCeiling)
	}
	if c.DrainTimeout < time.Duration(c.Caps.Total)*c.SendInterval {
		return fmt.Errorf("DRAIN_TIMEOUT %s cannot cover a full budget pass (%d sends at %s pacing)",
			c.DrainTimeout, c.Caps.Total, c.SendInterval)
	}
	return nil
}

// Category returns the daily cap for one category name.
func (c Caps) Category(cat string) int {
	switch cat {
	case "evaluation":
		return c.Evaluation
	case "certificate":
		return c.Certificate
	}
	return 0
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	WebhookURL      string
	ServiceName     string
	APIKey          string
	CORSAllowOrigin string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Protocol roles
	AdminIdentity        string
	OperatorIdentity     string
	FeeRecipientIdentity string

	// Accounting
	PerformanceFeeBps int
	AutoInitialize    bool

	// Monitoring
	StalenessCron string

	// API
	APIPort int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		ServiceName:     envStr("SERVICE_NAME", "GridVault"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "grid_vault"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Protocol roles
		AdminIdentity:        envStr("ADMIN_IDENTITY", ""),
		OperatorIdentity:     envStr("OPERATOR_IDENTITY", ""),
		FeeRecipientIdentity: envStr("FEE_RECIPIENT_IDENTITY", ""),

		// Accounting
		PerformanceFeeBps: envInt("PERFORMANCE_FEE_BPS", 2500),
		AutoInitialize:    envBool("AUTO_INITIALIZE", false),

		// Monitoring
		StalenessCron: envStr("STALENESS_CRON", "0 */10 * * * *"),

		// API
		APIPort: envInt("API_PORT", 8080),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.AutoInitialize {
		if c.AdminIdentity == "" {
			errs = append(errs, "ADMIN_IDENTITY is required when AUTO_INITIALIZE is enabled")
		}
		if c.OperatorIdentity == "" {
			errs = append(errs, "OPERATOR_IDENTITY is required when AUTO_INITIALIZE is enabled")
		}
		if c.FeeRecipientIdentity == "" {
			errs = append(errs, "FEE_RECIPIENT_IDENTITY is required when AUTO_INITIALIZE is enabled")
		}
	}
	if c.PerformanceFeeBps < 0 || c.PerformanceFeeBps > 10_000 {
		errs = append(errs, "PERFORMANCE_FEE_BPS must be between 0 and 10000")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set — vault event notifications disabled")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Grid Vault Configuration ===")
	fmt.Printf("Service: %s\n", c.ServiceName)
	fmt.Printf("Database: %s@%s:%d/%s\n", c.DBUser, c.DBHost, c.DBPort, c.DBName)
	fmt.Println("--------------------------------------")
	fmt.Println("Protocol Roles:")
	fmt.Printf("  Admin: %s\n", truncIdentity(c.AdminIdentity))
	fmt.Printf("  Operator: %s\n", truncIdentity(c.OperatorIdentity))
	fmt.Printf("  Fee Recipient: %s\n", truncIdentity(c.FeeRecipientIdentity))
	fmt.Printf("  Auto-Initialize: %v\n", c.AutoInitialize)
	fmt.Println("--------------------------------------")
	fmt.Println("Accounting:")
	fmt.Printf("  Performance Fee: %d bps\n", c.PerformanceFeeBps)
	fmt.Println("--------------------------------------")
	fmt.Println("Monitoring:")
	fmt.Printf("  Staleness Check: %q\n", c.StalenessCron)
	fmt.Printf("  Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("--------------------------------------")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("API Auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func truncIdentity(id string) string {
	if id == "" {
		return "(not set)"
	}
	if len(id) > 16 {
		return id[:10] + "..." + id[len(id)-6:]
	}
	return id
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

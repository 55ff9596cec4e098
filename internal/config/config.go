package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"starledger/internal/database"
	"starledger/internal/service"
)

const MinJWTSecretLen = 32

// Config is filled from flags first; environment variables override them.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	Driver      string `env:"DATABASE_DRIVER"`
	JWTSecret   string `env:"JWT_SECRET"`
	NoBot       bool   `env:"NO_BOT"`
	LogLevel    string `env:"LOG_LEVEL"`

	BotToken string `env:"BOT_TOKEN"`
	AdminID  int64  `env:"ADMIN_ID"`
	Wallet   string `env:"WALLET_ADDRESS"`
	// AdminAPIKeyHash is the bcrypt hash of the admin HTTP API key. Empty
	// disables the whole admin API.
	AdminAPIKeyHash string `env:"ADMIN_API_KEY_HASH"`

	UnitPrice   string `env:"UNIT_PRICE"`
	MinQuantity int64  `env:"MIN_QUANTITY"`
	MaxQuantity int64  `env:"MAX_QUANTITY"`

	ReferralPolicy     string `env:"REFERRAL_POLICY"`
	ReferralRate       string `env:"REFERRAL_RATE"`
	ReferralFixedBonus int64  `env:"REFERRAL_FIXED_BONUS"`

	OrderRatePerMinute int           `env:"ORDER_RATE_PER_MINUTE"`
	RemindAfter        time.Duration `env:"REMIND_AFTER"`
	ReminderInterval   time.Duration `env:"REMINDER_INTERVAL"`

	unitPrice    decimal.Decimal
	referralRate decimal.Decimal
}

// New parses args (without the program name) and the environment.
func New(args []string) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("starledger", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "localhost:8080", "admin API address and port")
	fs.StringVar(&cfg.DatabaseURI, "d", "data/starledger.db", "database URI or SQLite file path")
	fs.StringVar(&cfg.Driver, "driver", database.DriverSQLite, "database driver: sqlite or pgx")
	fs.StringVar(&cfg.JWTSecret, "s", "", "jwt signing key for the admin API")
	fs.BoolVar(&cfg.NoBot, "no-bot", false, "run without the Telegram bot")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&cfg.UnitPrice, "unit-price", "0.00475", "price of one unit")
	fs.Int64Var(&cfg.MinQuantity, "min", 50, "minimum units per order")
	fs.Int64Var(&cfg.MaxQuantity, "max", 1000000, "maximum units per order")
	fs.StringVar(&cfg.ReferralPolicy, "referral-policy", service.PolicyFirstPurchase, "percentage or first-purchase-fixed")
	fs.StringVar(&cfg.ReferralRate, "referral-rate", "0.05", "bonus fraction for the percentage policy")
	fs.Int64Var(&cfg.ReferralFixedBonus, "referral-bonus", 10, "bonus for the first-purchase-fixed policy")
	fs.IntVar(&cfg.OrderRatePerMinute, "order-rate", 5, "orders per user per minute")
	fs.DurationVar(&cfg.RemindAfter, "remind-after", 30*time.Minute, "remind the admin about orders waiting this long")
	fs.DurationVar(&cfg.ReminderInterval, "remind-interval", time.Minute, "reminder check interval")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []error

	if !c.NoBot && c.BotToken == "" {
		problems = append(problems, errors.New("BOT_TOKEN is required"))
	}
	if c.AdminID == 0 {
		problems = append(problems, errors.New("ADMIN_ID is required"))
	}
	if c.Wallet == "" {
		problems = append(problems, errors.New("WALLET_ADDRESS is required"))
	}
	if c.AdminAPIKeyHash != "" && len(c.JWTSecret) < MinJWTSecretLen {
		problems = append(problems, fmt.Errorf("JWT_SECRET of at least %d bytes is required with ADMIN_API_KEY_HASH", MinJWTSecretLen))
	}
	if c.Driver != database.DriverSQLite && c.Driver != database.DriverPostgres {
		problems = append(problems, fmt.Errorf("unknown database driver %q", c.Driver))
	}

	price, err := decimal.NewFromString(c.UnitPrice)
	switch {
	case err != nil:
		problems = append(problems, fmt.Errorf("UNIT_PRICE: %w", err))
	case !price.IsPositive():
		problems = append(problems, fmt.Errorf("UNIT_PRICE must be positive, got %s", c.UnitPrice))
	}
	c.unitPrice = price

	if c.MinQuantity < 1 {
		problems = append(problems, fmt.Errorf("MIN_QUANTITY must be at least 1, got %d", c.MinQuantity))
	}
	if c.MinQuantity > c.MaxQuantity {
		problems = append(problems, fmt.Errorf("MIN_QUANTITY %d exceeds MAX_QUANTITY %d", c.MinQuantity, c.MaxQuantity))
	}

	rate, err := decimal.NewFromString(c.ReferralRate)
	if err != nil {
		problems = append(problems, fmt.Errorf("REFERRAL_RATE: %w", err))
	}
	c.referralRate = rate
	if _, err := c.Policy(); err != nil {
		problems = append(problems, err)
	}

	if c.RemindAfter <= 0 || c.ReminderInterval <= 0 {
		problems = append(problems, errors.New("REMIND_AFTER and REMINDER_INTERVAL must be positive"))
	}

	return errors.Join(problems...)
}

func (c *Config) Price() decimal.Decimal {
	return c.unitPrice
}

// Policy builds the configured referral policy.
func (c *Config) Policy() (service.ReferralPolicy, error) {
	return service.NewReferralPolicy(c.ReferralPolicy, c.referralRate, c.ReferralFixedBonus)
}

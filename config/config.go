package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Shop      ShopConfig      `yaml:"shop" json:"shop"`
	Backup    BackupConfig    `yaml:"backup" json:"backup"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
	Invoice   InvoiceConfig   `yaml:"invoice" json:"invoice"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr" env:"TERMOMAZ_ADDR"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver" json:"driver" env:"TERMOMAZ_DB_DRIVER"`
	DSN         string `yaml:"dsn" json:"dsn" env:"TERMOMAZ_DB_DSN"`
	SeedOnEmpty bool   `yaml:"seedOnEmpty" json:"seedOnEmpty" env:"TERMOMAZ_SEED"`
}

type LogConfig struct {
	Env string `yaml:"env" json:"env" env:"TERMOMAZ_LOG_ENV"`
}

type ShopConfig struct {
	PaymentEpsilon    string `yaml:"paymentEpsilon" json:"paymentEpsilon" env:"TERMOMAZ_PAYMENT_EPSILON"`
	LowStockThreshold int    `yaml:"lowStockThreshold" json:"lowStockThreshold" env:"TERMOMAZ_LOW_STOCK"`
	RecentOrders      int    `yaml:"recentOrders" json:"recentOrders" env:"TERMOMAZ_RECENT_ORDERS"`
	CSVEncoding       string `yaml:"csvEncoding" json:"csvEncoding" env:"TERMOMAZ_CSV_ENCODING"`
}

// Epsilon is the payment tolerance as a decimal. Invalid values fall back to 0.01.
func (s ShopConfig) Epsilon() decimal.Decimal {
	eps, err := decimal.NewFromString(s.PaymentEpsilon)
	if err != nil || !eps.IsPositive() {
		return decimal.RequireFromString(defaultEpsilon)
	}
	return eps
}

type BackupConfig struct {
	Dir      string `yaml:"dir" json:"dir" env:"TERMOMAZ_BACKUP_DIR"`
	Schedule string `yaml:"schedule" json:"schedule" env:"TERMOMAZ_BACKUP_SCHEDULE"`
	Keep     int    `yaml:"keep" json:"keep" env:"TERMOMAZ_BACKUP_KEEP"`
}

// AuthConfig enables HTTP Basic auth on mutating routes when both fields are set.
type AuthConfig struct {
	AdminUser         string `yaml:"adminUser" json:"adminUser" env:"TERMOMAZ_ADMIN_USER"`
	AdminPasswordHash string `yaml:"adminPasswordHash" json:"adminPasswordHash,omitempty" env:"TERMOMAZ_ADMIN_PASSWORD_HASH"`
}

func (a AuthConfig) Enabled() bool {
	return a.AdminUser != "" && a.AdminPasswordHash != ""
}

// RateLimitConfig limits each remote address. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond" json:"requestsPerSecond" env:"TERMOMAZ_RATE_LIMIT"`
	Burst             int     `yaml:"burst" json:"burst" env:"TERMOMAZ_RATE_BURST"`
}

type InvoiceConfig struct {
	ShopName    string `yaml:"shopName" json:"shopName" env:"TERMOMAZ_SHOP_NAME"`
	ShopAddress string `yaml:"shopAddress" json:"shopAddress" env:"TERMOMAZ_SHOP_ADDRESS"`
	ChromePath  string `yaml:"chromePath" json:"chromePath" env:"TERMOMAZ_CHROME_PATH"`
}

const (
	DefaultPath    = "./termomaz.yaml"
	defaultEpsilon = "0.01"
)

var (
	cfg  Config
	path = DefaultPath
	mu   sync.RWMutex
)

// Default returns the configuration used when no file or environment overrides exist.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "./termomaz.db"},
		Log:      LogConfig{Env: "development"},
		Shop: ShopConfig{
			PaymentEpsilon:    defaultEpsilon,
			LowStockThreshold: 5,
			RecentOrders:      5,
			CSVEncoding:       "utf-8",
		},
		Backup:    BackupConfig{Dir: "./backups", Schedule: "0 3 * * *", Keep: 7},
		RateLimit: RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		Invoice:   InvoiceConfig{ShopName: "Termomaz"},
	}
}

// Load reads the YAML file at p (missing is fine), then .env, then TERMOMAZ_* variables,
// each layer overriding the previous one. The result becomes the process-wide config.
func Load(p string) (Config, error) {
	if p == "" {
		p = DefaultPath
	}
	c := Default()

	file, err := os.ReadFile(p)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", p, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envdecode.Decode(&c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}

	applyDefaults(&c)
	if err := Validate(c); err != nil {
		return Config{}, err
	}

	mu.Lock()
	cfg = c
	path = p
	mu.Unlock()
	return c, nil
}

// Save validates newCfg, writes it to the file it was loaded from and makes it current.
func Save(newCfg Config) error {
	applyDefaults(&newCfg)
	if err := Validate(newCfg); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	out, err := yaml.Marshal(newCfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Set replaces the current config without touching disk. Tests use it.
func Set(c Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = d.Database.Driver
	}
	if c.Database.DSN == "" {
		c.Database.DSN = d.Database.DSN
	}
	if c.Log.Env == "" {
		c.Log.Env = d.Log.Env
	}
	if c.Shop.PaymentEpsilon == "" {
		c.Shop.PaymentEpsilon = d.Shop.PaymentEpsilon
	}
	if c.Shop.RecentOrders == 0 {
		c.Shop.RecentOrders = d.Shop.RecentOrders
	}
	if c.Shop.CSVEncoding == "" {
		c.Shop.CSVEncoding = d.Shop.CSVEncoding
	}
	if c.Backup.Keep == 0 {
		c.Backup.Keep = d.Backup.Keep
	}
}

// Validate checks the values that would otherwise fail later at runtime.
func Validate(c Config) error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver debe ser sqlite3 o postgres, no %q", c.Database.Driver)
	}
	switch c.Shop.CSVEncoding {
	case "utf-8", "utf-8-bom", "windows-1252":
	default:
		return fmt.Errorf("shop.csvEncoding no soportado: %q", c.Shop.CSVEncoding)
	}
	if eps, err := decimal.NewFromString(c.Shop.PaymentEpsilon); err != nil || eps.IsNegative() {
		return fmt.Errorf("shop.paymentEpsilon no es un número válido: %q", c.Shop.PaymentEpsilon)
	}
	if c.Shop.LowStockThreshold < 0 {
		return errors.New("shop.lowStockThreshold no puede ser negativo")
	}
	if c.Shop.RecentOrders < 0 || c.Shop.RecentOrders > 100 {
		return errors.New("shop.recentOrders debe estar entre 0 y 100")
	}
	if c.Backup.Keep < 0 {
		return errors.New("backup.keep no puede ser negativo")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rateLimit no admite valores negativos")
	}
	return nil
}

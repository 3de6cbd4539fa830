package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/patiponrmutl/ScanAttendance/models"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

type Config struct {
	AppHost string `env:"APP_HOST" envDefault:"127.0.0.1"`
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"dev"`

	DataDir    string `env:"DATA_DIR" envDefault:"data"`
	RecordsDir string `env:"RECORDS_DIR" envDefault:"records"`

	// json keeps the per-partition files; sqlite/postgres go through gorm.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"json"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/attendance.db"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"attendance"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	SerialPort        string        `env:"SERIAL_PORT"`
	SerialBaud        int           `env:"SERIAL_BAUD" envDefault:"9600"`
	SerialReadTimeout time.Duration `env:"SERIAL_READ_TIMEOUT" envDefault:"1s"`
	ReaderAutostart   bool          `env:"READER_AUTOSTART" envDefault:"false"`
	AdapterKeywords   []string      `env:"ADAPTER_KEYWORDS" envSeparator:"," envDefault:"Arduino,CH340,USB Serial"`

	ArchiveCron       string `env:"ARCHIVE_CRON"`
	ExportStopsReader bool   `env:"EXPORT_STOPS_READER" envDefault:"true"`

	JWTSecret            string        `env:"JWT_SECRET" envDefault:"dev-secret"`
	OperatorPasswordHash string        `env:"OPERATOR_PASSWORD_HASH"`
	TokenTTL             time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	DefaultStages      []string `env:"DEFAULT_STAGES" envSeparator:"," envDefault:"مرحلة أولى,مرحلة ثانية,مرحلة ثالثة"`
	DefaultDepartments []string `env:"DEFAULT_DEPARTMENTS" envSeparator:"," envDefault:"تجميع,كهرباء,ديكور,مكننة,سباكة,زراعي,اجهزة طبية,تجاري"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[config] no .env file, using process environment")
		} else {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "json", "sqlite", "postgres":
	default:
		return fmt.Errorf("STORE_DRIVER must be json, sqlite or postgres, got %q", c.StoreDriver)
	}
	if c.SerialBaud <= 0 {
		return fmt.Errorf("SERIAL_BAUD must be positive, got %d", c.SerialBaud)
	}
	if c.SerialReadTimeout <= 0 {
		return fmt.Errorf("SERIAL_READ_TIMEOUT must be positive, got %s", c.SerialReadTimeout)
	}
	if c.IsProd() && c.OperatorPasswordHash == "" {
		return errors.New("OPERATOR_PASSWORD_HASH is required when APP_ENV=prod")
	}
	return nil
}

func (c *Config) Addr() string { return c.AppHost + ":" + c.AppPort }

func (c *Config) IsProd() bool { return c.AppEnv == "prod" }

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// DefaultCatalog is the stage -> departments seed used on first start.
func (c *Config) DefaultCatalog() models.Catalog {
	cat := models.Catalog{}
	deps := trimAll(c.DefaultDepartments)
	for _, st := range trimAll(c.DefaultStages) {
		cat[st] = append([]string(nil), deps...)
	}
	return cat
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

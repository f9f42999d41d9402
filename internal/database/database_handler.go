package database

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"suffixrank/internal/config"
	"suffixrank/internal/domain"
	"suffixrank/internal/support"
)

type Config struct {
	ExistingDB  *gorm.DB
	Dialector   gorm.Dialector
	Logger      logger.Interface
	AutoMigrate bool
}

type Option func(*Config)

// SetupDB opens the keyed suffix store and makes sure its schema exists.
func SetupDB(settings config.DatabaseSettings, opts ...Option) (*gorm.DB, error) {
	cfg, err := defaultConfig(settings)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var db *gorm.DB
	switch {
	case cfg.ExistingDB != nil:
		db = cfg.ExistingDB
	case cfg.Dialector != nil:
		gormCfg := &gorm.Config{}
		if cfg.Logger != nil {
			gormCfg.Logger = cfg.Logger
		}
		db, err = gorm.Open(cfg.Dialector, gormCfg)
		if err != nil {
			return nil, fmt.Errorf("database: open connection: %w", err)
		}
		configureConnectionPool(db)
	default:
		return nil, fmt.Errorf("database: no dialector or existing connection provided")
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.PublicSuffix{}); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
		if err := ensureSuffixSchema(db); err != nil {
			return nil, err
		}
		log.Debug("Database schema ready", "dialect", db.Dialector.Name())
	}

	return db, nil
}

// Close releases the pooled connections behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func defaultConfig(settings config.DatabaseSettings) (Config, error) {
	dialector, err := openDialector(settings)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Dialector:   dialector,
		Logger:      silentLogger(),
		AutoMigrate: true,
	}, nil
}

func openDialector(settings config.DatabaseSettings) (gorm.Dialector, error) {
	switch settings.Driver {
	case config.DriverSQLite, "":
		return sqlite.Open(sqliteDSN(settings.Path)), nil
	case config.DriverPostgres:
		return postgres.Open(buildDSN()), nil
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", settings.Driver)
	}
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", path)
}

func buildDSN() string {
	dbHost := support.GetEnv("DB_HOST", "localhost")
	dbPort := support.GetEnv("DB_PORT", "5432")
	dbName := support.GetEnv("DB_NAME", "suffixrank")
	dbUser := support.GetEnv("DB_USERNAME", "admin")
	dbPassword := support.GetEnv("DB_PASSWORD", "admin")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost,
		dbPort,
		dbUser,
		dbPassword,
		dbName,
	)

	return dsn
}

func silentLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{LogLevel: logger.Silent},
	)
}

// VerboseLogger reports slow queries and errors through the application logger.
func VerboseLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{
			LogLevel:                  logger.Warn,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func WithExistingDB(db *gorm.DB) Option {
	return func(cfg *Config) {
		cfg.ExistingDB = db
	}
}

func WithDialector(d gorm.Dialector) Option {
	return func(cfg *Config) {
		cfg.Dialector = d
	}
}

func WithLogger(l logger.Interface) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithAutoMigrate(enabled bool) Option {
	return func(cfg *Config) {
		cfg.AutoMigrate = enabled
	}
}

func configureConnectionPool(db *gorm.DB) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error("database: get sql.DB", "error", err)
		return
	}

	// sqlite allows a single writer.
	maxOpen := 1
	if db.Dialector.Name() != "sqlite" {
		maxOpen = support.GetEnvInt("DB_MAX_OPEN_CONNS", 4)
	}
	connLifetimeSeconds := support.GetEnvInt("DB_CONN_MAX_LIFETIME", 300)

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
	}
	if connLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(connLifetimeSeconds) * time.Second)
	}
}

// ensureSuffixSchema adds the case-insensitive unique indexes that gorm tags cannot express.
func ensureSuffixSchema(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil database connection")
	}

	var stmts []string
	switch db.Dialector.Name() {
	case "sqlite":
		stmts = []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_psl_suffix_nocase ON psl (suffix COLLATE NOCASE)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_psl_punycode_suffix_nocase ON psl (punycode_suffix COLLATE NOCASE)`,
		}
	case "postgres":
		stmts = []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_psl_suffix_lower ON psl (lower(suffix))`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_psl_punycode_suffix_lower ON psl (lower(punycode_suffix))`,
		}
	default:
		return fmt.Errorf("suffix schema: unsupported dialect %q", db.Dialector.Name())
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("suffix schema: %w", err)
		}
	}

	return nil
}

package database

import (
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options describes one registry database connection.
type Options struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	TLS      bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AcquireTimeout  time.Duration
}

// Configured reports whether enough settings are present to connect.
func (o Options) Configured() bool {
	return o.Host != ""
}

// Validate checks that every required field is present.
func (o Options) Validate() error {
	if o.User == "" || o.Password == "" || o.Host == "" || o.Name == "" {
		return fmt.Errorf("missing some element of database configuration (host=%q name=%q)", o.Host, o.Name)
	}
	return nil
}

// DSN renders the go-sql-driver connection string.
func (o Options) DSN() string {
	port := o.Port
	if port == "" {
		port = "3306"
	}
	cfg := driver.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%s", o.Host, port)
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	if o.TLS {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

// DB pairs a gorm handle with the Gate bounding its pool.
type DB struct {
	Gorm *gorm.DB
	Gate *Gate
}

// Open connects to MySQL, sizes the pool and installs tracing.
func Open(opts Options, log logrus.FieldLogger) (*DB, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(opts.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", opts.Name, err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	if opts.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.WithError(err).Warn("db connected but failed to install otelgorm plugin")
	}

	log.WithFields(logrus.Fields{
		"module":    "database",
		"database":  opts.Name,
		"max_open":  maxOpen,
		"acquire_s": opts.AcquireTimeout.Seconds(),
	}).Info("connected to database")

	return &DB{Gorm: db, Gate: NewGate(maxOpen, opts.AcquireTimeout)}, nil
}

// Close releases the underlying pool.
func (d *DB) Close() error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

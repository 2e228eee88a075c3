package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Credentials struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SQLitePath        string
	MigrationsDirPath string
}

type Repository struct {
	db     *sql.DB
	driver string
}

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type SaleRepository interface {
	// CreateSale stores the sale and its outbox event atomically. A sale for the
	// same checkout session returns the stored sale with domain.ErrDuplicateEvent.
	CreateSale(ctx context.Context, in domain.SaleInput) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	GetSaleBySession(ctx context.Context, sessionID string) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]*domain.Sale, error)
	CountSalesByProduct(ctx context.Context, productID int64) (int, error)
	DeleteSale(ctx context.Context, id int64) error
}

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsPublished(ctx context.Context, id int64) error
}

type RepoInterface interface {
	ProductRepository
	SaleRepository
	OutboxRepository
	Ping(ctx context.Context) error
	RunMigrations(*Credentials) error
	Close() error
}

func NewRepository(cred *Credentials) (*Repository, error) {
	driver := cred.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	var dsn string
	switch driver {
	case DriverPostgres:
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cred.Host,
			cred.Port,
			cred.User,
			cred.Password,
			cred.DBName)
	case DriverSQLite:
		dsn = sqliteDSN(cred.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	if driver == DriverSQLite {
		// an in-memory database lives only as long as its single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(10)
	}
	return &Repository{db: db, driver: driver}, nil
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	var (
		driver database.Driver
		err    error
	)
	switch r.driver {
	case DriverSQLite:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "bookstore_schema_migrations",
		})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", filepath.Join(cred.MigrationsDirPath, r.driver)),
		r.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// dbTime scans timestamps from both drivers; sqlite may hand back text.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

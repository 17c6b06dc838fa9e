package membership

import (
	"context"
	"database/sql"
	"io/fs"
	"time"

	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// PersistenceConfig is a plain struct implementation of the persistence
// client's config, enough for tests and the example app.
type PersistenceConfig struct {
	Debug       bool
	Driver      string
	Dialect     string
	Server      string
	Database    string
	User        string
	Password    string
	PingTimeout time.Duration
}

func (c PersistenceConfig) GetDebug() bool      { return c.Debug }
func (c PersistenceConfig) GetDriver() string   { return c.Driver }
func (c PersistenceConfig) GetDialect() string  { return c.Dialect }
func (c PersistenceConfig) GetServer() string   { return c.Server }
func (c PersistenceConfig) GetDatabase() string { return c.Database }
func (c PersistenceConfig) GetUser() string     { return c.User }
func (c PersistenceConfig) GetPassword() string { return c.Password }

func (c PersistenceConfig) GetOtelIdentifier() string { return "" }

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

var _ persistence.Config = PersistenceConfig{}

// OpenSQLite opens a sqlite database through the shim driver, which picks a
// cgo or pure-go implementation depending on the build. Use DSN
// "file::memory:?cache=shared" for an in-memory database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	return sql.Open(sqliteshim.ShimName, dsn)
}

// RegisterModels registers every table with the persistence layer. Call it
// once before opening the client so relations resolve.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Node)(nil))
	persistence.RegisterModel((*Member)(nil))
	persistence.RegisterModel((*Invitation)(nil))
	persistence.RegisterModel((*Session)(nil))
	persistence.RegisterModel((*PasswordReset)(nil))
}

// SetupPersistence opens the persistence client over the given database,
// registers the embedded migrations, and runs them. It returns the bun DB
// handle the repositories work against.
func SetupPersistence(ctx context.Context, cfg persistence.Config, db *sql.DB) (*bun.DB, error) {
	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}

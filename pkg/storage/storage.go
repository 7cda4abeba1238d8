// Package storage opens the configured database backend and exposes its
// user, note and blog stores behind one [Handle].
//
// Supported drivers:
//   - "sqlite": a local file (or ":memory:"), the default
//   - "mongo": a MongoDB deployment
package storage

import (
	"context"
	"fmt"

	"github.com/folioworks/folio/pkg/blog"
	"github.com/folioworks/folio/pkg/notes"
	"github.com/folioworks/folio/pkg/storage/mongo"
	"github.com/folioworks/folio/pkg/storage/sqlite"
	"github.com/folioworks/folio/pkg/users"
)

// Drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config selects and locates a backend.
type Config struct {
	Driver string `toml:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `toml:"path" yaml:"path"`

	// URI and Database locate a MongoDB database.
	URI      string `toml:"uri" yaml:"uri"`
	Database string `toml:"database" yaml:"database"`
}

// Handle bundles the stores of one open backend.
type Handle struct {
	Driver string
	Users  users.Store
	Notes  notes.Store
	Blogs  blog.Store

	ping  func(context.Context) error
	close func() error
}

// Ping checks that the backend is reachable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.ping(ctx)
}

// Close releases the backend connection.
func (h *Handle) Close() error {
	return h.close()
}

// Open connects to the backend named by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg Config) (*Handle, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Driver: DriverSQLite,
			Users:  db.Users(),
			Notes:  db.Notes(),
			Blogs:  db.Blogs(),
			ping:   db.Ping,
			close:  db.Close,
		}, nil
	case DriverMongo:
		db, err := mongo.Open(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Driver: DriverMongo,
			Users:  db.Users(),
			Notes:  db.Notes(),
			Blogs:  db.Blogs(),
			ping:   db.Ping,
			close:  db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

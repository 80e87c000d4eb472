// Package db opens the MySQL database that backs the catalog fetch
// functions.
package db

import (
	"context"

	"gorm.io/gorm"
)

// Database is the interface for the database
type Database interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}

type gormDatabase struct {
	db *gorm.DB
}

// FromGorm wraps an existing gorm handle, e.g. a DryRun session in tests.
func FromGorm(db *gorm.DB) Database {
	return &gormDatabase{db: db}
}

func (d *gormDatabase) DB() (*gorm.DB, error) {
	if d.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return d.db, nil
}

func (d *gormDatabase) Ping(ctx context.Context) error {
	if d.db == nil {
		return ErrConnectionNotEstablished
	}
	sqldb, err := d.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (d *gormDatabase) Close() error {
	if d.db == nil {
		return ErrConnectionNotEstablished
	}
	sqldb, err := d.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}

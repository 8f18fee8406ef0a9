// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to retrieve the digital trigger
// configurations stored in the condition and configuration database.
package conddb // import "github.com/go-lpc/dtrig/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var (
	host = "localhost"
	usr  = "username"
	pwd  = "s3cr3t"

	drvName = "mysql"
)

const timeout = 5 * time.Second

// DB exposes convenience methods to easily retrieve trigger
// configurations from the database.
type DB struct {
	db   *sql.DB
	name string // name of the database
}

// Open opens a connection to the dbname database.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

const trigConfigCols = "identifier, name, ut_uh, ut_lh, lt_uh, lt_lh, polarity"

// TrigConfig returns the most recent trigger configuration named name.
// TrigConfig returns an error wrapping sql.ErrNoRows if there is none.
func (db *DB) TrigConfig(ctx context.Context, name string) (TrigConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT "+trigConfigCols+" FROM trigconfigs WHERE name=? ORDER BY datetime DESC LIMIT 1",
		name,
	)
	if err != nil {
		return TrigConfig{}, fmt.Errorf("conddb: could not query trigger cfg %q: %w", name, err)
	}
	defer rows.Close()

	cfg, err := scanTrigConfig(ctx, rows)
	if err != nil {
		return cfg, fmt.Errorf("conddb: could not retrieve trigger cfg %q: %w", name, err)
	}
	return cfg, nil
}

// LastTrigConfig returns the most recent trigger configuration.
func (db *DB) LastTrigConfig(ctx context.Context) (TrigConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT "+trigConfigCols+" FROM trigconfigs ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return TrigConfig{}, fmt.Errorf("conddb: could not query last trigger cfg: %w", err)
	}
	defer rows.Close()

	cfg, err := scanTrigConfig(ctx, rows)
	if err != nil {
		return cfg, fmt.Errorf("conddb: could not retrieve last trigger cfg: %w", err)
	}
	return cfg, nil
}

// TrigConfigNames returns the names of all the stored trigger
// configurations, in alphabetical order.
func (db *DB) TrigConfigNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT DISTINCT name FROM trigconfigs ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not query trigger cfg names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return names, fmt.Errorf("conddb: could not get trigger cfg name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return names, fmt.Errorf("conddb: could not scan db for trigger cfg names: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return names, fmt.Errorf("conddb: context error while retrieving trigger cfg names: %w", err)
	}

	return names, nil
}

func scanTrigConfig(ctx context.Context, rows *sql.Rows) (TrigConfig, error) {
	var (
		cfg TrigConfig
		n   int
	)
	for rows.Next() {
		err := rows.Scan(
			&cfg.ID, &cfg.Name,
			&cfg.UtUh, &cfg.UtLh, &cfg.LtUh, &cfg.LtLh,
			&cfg.Polarity,
		)
		if err != nil {
			return cfg, fmt.Errorf("could not scan row: %w", err)
		}
		n++
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("could not scan db: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("context error: %w", err)
	}

	if n == 0 {
		return cfg, sql.ErrNoRows
	}

	return cfg, nil
}

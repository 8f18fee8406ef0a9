// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package preset stores named digital trigger configurations in a local
// database file, for setups without access to the condition database.
//
// Presets are exchanged as YAML documents:
//
//	- name: cosmics
//	  ut_uh: 4000
//	  ut_lh: 3900
//	  lt_uh: 1200
//	  lt_lh: 1100
//	  polarity: 1
package preset // import "github.com/go-lpc/dtrig/preset"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-lpc/dtrig/conddb"
	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"
)

var (
	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("preset: not found")

	errNoName = errors.New("preset: empty preset name")
)

var (
	bktPresets = []byte("trigconfigs")
	bktMeta    = []byte("meta")
	keyLast    = []byte("last")
)

// Store is a database of trigger configurations, indexed by name.
type Store struct {
	db *bbolt.DB
}

// Open opens, creating it if needed, the preset database file fname.
func Open(fname string) (*Store, error) {
	db, err := bbolt.Open(fname, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("preset: could not open %q: %w", fname, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bktPresets, bktMeta} {
			_, err := tx.CreateBucketIfNotExists(name)
			if err != nil {
				return fmt.Errorf("could not create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preset: could not initialize %q: %w", fname, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (st *Store) Close() error {
	return st.db.Close()
}

// Put stores cfg under cfg.Name, replacing any previous preset with the
// same name. cfg becomes the most recent preset.
func (st *Store) Put(cfg conddb.TrigConfig) error {
	if cfg.Name == "" {
		return errNoName
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("preset: could not encode %q: %w", cfg.Name, err)
	}

	err = st.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(cfg.Name)
		err := tx.Bucket(bktPresets).Put(key, raw)
		if err != nil {
			return err
		}
		return tx.Bucket(bktMeta).Put(keyLast, key)
	})
	if err != nil {
		return fmt.Errorf("preset: could not store %q: %w", cfg.Name, err)
	}
	return nil
}

// Delete removes the preset name.
func (st *Store) Delete(name string) error {
	err := st.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bktPresets)
		if bkt.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		err := bkt.Delete([]byte(name))
		if err != nil {
			return err
		}

		meta := tx.Bucket(bktMeta)
		if string(meta.Get(keyLast)) == name {
			return meta.Delete(keyLast)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("preset: could not delete %q: %w", name, err)
	}
	return nil
}

// TrigConfig returns the preset name.
func (st *Store) TrigConfig(ctx context.Context, name string) (conddb.TrigConfig, error) {
	var cfg conddb.TrigConfig
	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("preset: could not retrieve %q: %w", name, err)
	}

	err := st.db.View(func(tx *bbolt.Tx) error {
		return get(tx, name, &cfg)
	})
	if err != nil {
		return cfg, fmt.Errorf("preset: could not retrieve %q: %w", name, err)
	}
	return cfg, nil
}

// LastTrigConfig returns the most recently stored preset.
func (st *Store) LastTrigConfig(ctx context.Context) (conddb.TrigConfig, error) {
	var cfg conddb.TrigConfig
	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("preset: could not retrieve last preset: %w", err)
	}

	err := st.db.View(func(tx *bbolt.Tx) error {
		name := tx.Bucket(bktMeta).Get(keyLast)
		if name == nil {
			return ErrNotFound
		}
		return get(tx, string(name), &cfg)
	})
	if err != nil {
		return cfg, fmt.Errorf("preset: could not retrieve last preset: %w", err)
	}
	return cfg, nil
}

// TrigConfigNames returns the sorted list of preset names.
func (st *Store) TrigConfigNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("preset: could not list presets: %w", err)
	}

	var names []string
	err := st.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bktPresets).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("preset: could not list presets: %w", err)
	}
	return names, nil
}

func get(tx *bbolt.Tx, name string, cfg *conddb.TrigConfig) error {
	raw := tx.Bucket(bktPresets).Get([]byte(name))
	if raw == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	err := yaml.Unmarshal(raw, cfg)
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", name, err)
	}
	return nil
}

// Decode reads a YAML list of presets from r.
func Decode(r io.Reader) ([]conddb.TrigConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("preset: could not read presets: %w", err)
	}

	var cfgs []conddb.TrigConfig
	err = yaml.UnmarshalStrict(raw, &cfgs)
	if err != nil {
		return nil, fmt.Errorf("preset: could not decode presets: %w", err)
	}

	for i, cfg := range cfgs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("preset: preset #%d: %w", i, errNoName)
		}
	}
	return cfgs, nil
}

// Encode writes cfgs to w as a YAML list.
func Encode(w io.Writer, cfgs []conddb.TrigConfig) error {
	if cfgs == nil {
		cfgs = []conddb.TrigConfig{}
	}
	raw, err := yaml.Marshal(cfgs)
	if err != nil {
		return fmt.Errorf("preset: could not encode presets: %w", err)
	}
	_, err = w.Write(raw)
	if err != nil {
		return fmt.Errorf("preset: could not write presets: %w", err)
	}
	return nil
}

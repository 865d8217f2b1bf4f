// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"errors"
)

var errNoDb = errors.New("reverse lookup dictionary has no db")

// ReverseLookupDictionary answers reverse lookups and stem lookups from a
// shared ReverseDb.  It is cheap to create and needs no cleanup.
type ReverseLookupDictionary struct {
	db   *ReverseDb
	opts options
}

func NewReverseLookupDictionary(db *ReverseDb, opts ...Option) *ReverseLookupDictionary {
	return &ReverseLookupDictionary{
		db:   db,
		opts: newOptions(opts),
	}
}

// Db returns the underlying db.
func (d *ReverseLookupDictionary) Db() *ReverseDb {
	return d.db
}

// Load loads the db unless it is already open.
func (d *ReverseLookupDictionary) Load() error {
	if d.db == nil {
		return errNoDb
	}
	return d.db.Load()
}

// ReverseLookup returns the codes for text, joined by " | ".
func (d *ReverseLookupDictionary) ReverseLookup(text string) (string, bool) {
	if d.db == nil {
		return "", false
	}
	return d.db.Lookup(text)
}

// LookupStems returns the stems recorded for text, joined by spaces.
func (d *ReverseLookupDictionary) LookupStems(text string) (string, bool) {
	if d.db == nil {
		return "", false
	}
	return d.db.Lookup(text + stemKeySuffix)
}

// GetDictSettings returns the settings embedded in the db, or nil if there
// are none or they can't be parsed.
func (d *ReverseLookupDictionary) GetDictSettings() *DictSettings {
	if d.db == nil {
		return nil
	}
	text := d.db.SettingsText()
	if text == "" {
		return nil
	}
	settings := new(DictSettings)
	if err := settings.LoadFromText(text); err != nil {
		d.opts.logger.Warn("error parsing embedded dict settings", "path", d.db.Path(), "err", err)
		return nil
	}
	return settings
}

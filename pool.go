// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Pool hands out reverse lookup dictionaries backed by at most one
// ReverseDb per dictionary name.  Dbs live until the pool is closed.
type Pool struct {
	resolver ResourceResolver
	opts     options

	dbs   sync.Map // name -> *ReverseDb
	group singleflight.Group
}

// NewPool returns a Pool resolving dictionary names to files with resolver.
func NewPool(resolver ResourceResolver, opts ...Option) *Pool {
	return &Pool{
		resolver: resolver,
		opts:     newOptions(opts),
	}
}

// GetDb returns the db for name, creating it on first use.  The returned
// db may not be loaded yet.
func (p *Pool) GetDb(name string) *ReverseDb {
	if db, ok := p.dbs.Load(name); ok {
		return db.(*ReverseDb)
	}
	db, _, _ := p.group.Do(name, func() (interface{}, error) {
		if db, ok := p.dbs.Load(name); ok {
			return db, nil
		}
		path := p.resolver.ResolvePath(name)
		p.opts.logger.Debug("creating reversedb", "name", name, "path", path)
		db := NewReverseDb(path, p.opts.apply()...)
		p.dbs.Store(name, db)
		return db, nil
	})
	return db.(*ReverseDb)
}

// Create returns a dictionary for the named db.
func (p *Pool) Create(name string) *ReverseLookupDictionary {
	return NewReverseLookupDictionary(p.GetDb(name), p.opts.apply()...)
}

// CreateFromTicket returns a dictionary for the db named by the
// "<name space>/dictionary" setting of the ticket's schema, or nil if there
// is no schema or no such setting.
func (p *Pool) CreateFromTicket(ticket Ticket) *ReverseLookupDictionary {
	if ticket.Schema == nil {
		return nil
	}
	name, ok := ticket.Schema.GetString(ticket.NameSpace + "/dictionary")
	if !ok || name == "" {
		// missing!
		return nil
	}
	return p.Create(name)
}

// Close closes every db the pool has created.
func (p *Pool) Close() error {
	var errs []error
	p.dbs.Range(func(name, db interface{}) bool {
		if err := db.(*ReverseDb).Close(); err != nil {
			errs = append(errs, err)
		}
		p.dbs.Delete(name)
		return true
	})
	return errors.Join(errs...)
}

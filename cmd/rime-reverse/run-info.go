// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli"

	"github.com/rime/revdb"
)

type info struct {
	Path             string              `json:"path"`
	DictFileChecksum string              `json:"dictFileChecksum"`
	Keys             int                 `json:"keys"`
	Settings         *revdb.DictSettings `json:"settings,omitempty"`
}

func runInfo(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	if c.NArg() != 1 {
		return fmt.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	dict, done, err := openDictionary(c, m, c.Args().First())
	if err != nil {
		return err
	}
	defer done()

	db := dict.Db()
	return printJson(m.w, &info{
		Path:             db.Path(),
		DictFileChecksum: fmt.Sprintf("%08x", db.DictFileChecksum()),
		Keys:             db.Len(),
		Settings:         dict.GetDictSettings(),
	})
}

func printJson(handle io.Writer, message interface{}) error {
	b, err := json.MarshalIndent(message, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(handle, "%s\n", b)
	return nil
}

// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/rime/revdb"
)

func runLookup(c *cli.Context) error {
	return lookupEach(c, (*revdb.ReverseLookupDictionary).ReverseLookup)
}

func runStems(c *cli.Context) error {
	return lookupEach(c, (*revdb.ReverseLookupDictionary).LookupStems)
}

func lookupEach(c *cli.Context, lookup func(*revdb.ReverseLookupDictionary, string) (string, bool)) error {
	m := c.App.Metadata["config"].(*metadata)

	if c.NArg() < 2 {
		return fmt.Errorf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage)
	}
	dict, done, err := openDictionary(c, m, c.Args().First())
	if err != nil {
		return err
	}
	defer done()

	for _, text := range c.Args().Tail() {
		if result, ok := lookup(dict, text); ok {
			fmt.Fprintf(m.w, "%s\t%s\n", text, result)
		} else {
			fmt.Fprintf(m.e, "%s: not found\n", text)
		}
	}
	return nil
}

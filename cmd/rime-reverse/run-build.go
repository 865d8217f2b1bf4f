// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"

	"github.com/rime/revdb"
	"github.com/rime/revdb/internal/dictsource"
)

const dictSuffix = ".dict.yaml"

func runBuild(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)

	dictFile := c.String("dict")
	if dictFile == "" {
		return fmt.Errorf("missing --dict")
	}

	f, err := os.Open(dictFile)
	if err != nil {
		return err
	}
	src, err := dictsource.Parse(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", dictFile, err)
	}

	if stemsFile := c.String("stems"); stemsFile != "" {
		sf, err := os.Open(stemsFile)
		if err != nil {
			return err
		}
		err = dictsource.ParseStems(sf, src.Stems)
		_ = sf.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", stemsFile, err)
		}
	}

	name := src.Settings.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(dictFile), dictSuffix)
	}
	opts := []revdb.Option{revdb.WithLogger(m.logger)}
	if maxSize := c.Int("max-size"); maxSize > 0 {
		opts = append(opts, revdb.WithMaxFileSize(maxSize))
	}
	db := revdb.NewReverseDb(revdb.NewDeployedResolver(c.String("out")).ResolvePath(name), opts...)
	defer db.Close()

	if err := db.Build(src.Settings, src.Syllabary, src.Vocabulary, src.Stems, src.Checksum); err != nil {
		return err
	}
	if err := db.Save(); err != nil {
		return err
	}

	fmt.Fprintf(m.w, "%s: %d keys from %d entries\n", db.Path(), db.Len(), src.Entries)
	return nil
}

// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command rime-reverse builds reverse lookup dbs from Rime dictionary
// sources and queries them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/rime/revdb"
)

type metadata struct {
	logger *slog.Logger
	e      io.Writer
	w      io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	app := cli.NewApp()
	app.Name = "rime-reverse"
	app.Usage = "build and query Rime reverse lookup dbs"
	app.Version = version

	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " log progress to stderr",
		},
	}
	dirFlag := cli.StringFlag{
		Name:  "dir, d",
		Value: ".",
		Usage: " directory holding the reverse dbs `DIR`",
	}
	app.Commands = []cli.Command{
		{
			Name:      "build",
			Usage:     "build a reverse db from a dictionary source",
			ArgsUsage: "\n   (* = required)",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dict, f",
					Usage: "*dictionary source `FILE` (*.dict.yaml)",
				},
				cli.StringFlag{
					Name:  "stems, s",
					Usage: " extra stems, tab separated `FILE`",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: ".",
					Usage: " output directory `DIR`",
				},
				cli.IntFlag{
					Name:  "max-size",
					Usage: " fail builds larger than `BYTES`",
				},
			},
			Action: runBuild,
		},
		{
			Name:      "lookup",
			Usage:     "print the codes for each text",
			ArgsUsage: "NAME TEXT...",
			Flags:     []cli.Flag{dirFlag},
			Action:    runLookup,
		},
		{
			Name:      "stems",
			Usage:     "print the stems of each text",
			ArgsUsage: "NAME TEXT...",
			Flags:     []cli.Flag{dirFlag},
			Action:    runStems,
		},
		{
			Name:      "info",
			Usage:     "describe a reverse db",
			ArgsUsage: "NAME",
			Flags:     []cli.Flag{dirFlag},
			Action:    runInfo,
		},
	}

	app.Before = func(c *cli.Context) error {
		level := slog.LevelWarn
		if c.GlobalBool("verbose") {
			level = slog.LevelDebug
		}
		c.App.Metadata["config"] = &metadata{
			logger: slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})),
			e:      c.App.ErrWriter,
			w:      c.App.Writer,
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

// openDictionary resolves name inside the --dir directory and loads it.
func openDictionary(c *cli.Context, m *metadata, name string) (*revdb.ReverseLookupDictionary, func(), error) {
	pool := revdb.NewPool(revdb.NewDeployedResolver(c.String("dir")), revdb.WithLogger(m.logger))
	dict := pool.Create(name)
	if err := dict.Load(); err != nil {
		_ = pool.Close()
		return nil, nil, err
	}
	return dict, func() { _ = pool.Close() }, nil
}

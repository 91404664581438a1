package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/rpcpool/gcstool/gcs"
)

func newCmd_Inspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print a GCS file's header and build-metadata without opening a query session",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument: <file>, got %d", c.Args().Len())
			}
			path := c.Args().Get(0)

			r, err := gcs.Open(path)
			if err != nil {
				return err
			}
			defer r.Close()

			h := r.Header()
			fmt.Printf("hash identity:       %s\n", h.HashID)
			fmt.Printf("items (n_items):     %s\n", humanize.Comma(int64(h.NItems)))
			fmt.Printf("p:                   %d\n", h.P)
			fmt.Printf("N (bucket universe): %s\n", humanize.Comma(int64(h.N)))
			fmt.Printf("payload bit length:  %s\n", humanize.Comma(int64(h.PayloadBitLen)))
			fmt.Printf("index entries:       %d\n", h.IndexEntryCount)
			fmt.Printf("index granularity:   2^%d = %s\n", h.IndexLog2Granularity, humanize.Comma(int64(h.Granularity())))
			fmt.Printf("payload offset:      %d\n", h.PayloadOffset)
			fmt.Printf("index offset:        %d\n", h.IndexOffset)

			if meta := r.Meta(); meta != nil {
				fmt.Println("build metadata:")
				for _, kv := range meta.KeyVals {
					fmt.Printf("  %s = %s\n", kv.Key, kv.Value)
				}
			}
			return nil
		},
	}
}

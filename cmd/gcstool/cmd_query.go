package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/gcstool/gcs"
	"github.com/rpcpool/gcstool/internal/lineread"
)

func newCmd_Query() *cli.Command {
	var encoding string

	return &cli.Command{
		Name:      "query",
		Usage:     "read probes from stdin, one per line, and report membership",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "hash",
				Usage:       "probe line encoding: raw or hex",
				Value:       "raw",
				Destination: &encoding,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument: <file>, got %d", c.Args().Len())
			}
			if encoding != "raw" && encoding != "hex" {
				return fmt.Errorf("--hash must be raw or hex, got %q", encoding)
			}
			path := c.Args().Get(0)

			r, err := gcs.Open(path)
			if err != nil {
				return err
			}
			defer r.Close()

			in, err := lineread.Open("-", lineread.DefaultChunkSize)
			if err != nil {
				return fmt.Errorf("opening stdin: %w", err)
			}
			defer in.Close()

			scanner := in.Lines()
			lineNo := 0
			var found, notFound int64
			for scanner.Scan() {
				lineNo++
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				probe := line
				if encoding == "hex" {
					decoded := make([]byte, hex.DecodedLen(len(line)))
					n, err := hex.Decode(decoded, line)
					if err != nil {
						fmt.Printf("line %d: bad hex: %v\n", lineNo, err)
						continue
					}
					probe = decoded[:n]
				}

				start := time.Now()
				ok := r.Contains(probe)
				elapsed := time.Since(start)
				metricsQueryLatency.Observe(elapsed.Seconds())

				if ok {
					found++
					metricsQueriesByResult.WithLabelValues("true").Inc()
					fmt.Printf("Found (%s)\n", elapsed)
				} else {
					notFound++
					metricsQueriesByResult.WithLabelValues("false").Inc()
					fmt.Printf("Not found (%s)\n", elapsed)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("%w: %v", gcs.ErrIOFailure, err)
			}

			klog.Infof("%s found, %s not found", humanize.Comma(found), humanize.Comma(notFound))
			return nil
		},
	}
}

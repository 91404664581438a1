package main

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/gcstool/gcs"
	"github.com/rpcpool/gcstool/internal/gcshash"
	"github.com/rpcpool/gcstool/internal/indexmeta"
	"github.com/rpcpool/gcstool/internal/lineread"
)

func newCmd_Create() *cli.Command {
	var encoding string
	var hashName string
	var p uint64
	var granularity uint
	var label string

	return &cli.Command{
		Name:      "create",
		Usage:     "build a GCS membership filter from newline-delimited input",
		ArgsUsage: "<input> <output>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "hash",
				Usage:       "input line encoding: raw or hex",
				Value:       "raw",
				Destination: &encoding,
			},
			&cli.StringFlag{
				Name:        "hash-id",
				Usage:       "bucket hash function: sha1 or siphash",
				Value:       "siphash",
				Destination: &hashName,
			},
			&cli.Uint64Flag{
				Name:        "p",
				Usage:       "Rice/Golomb divisor; false-positive rate is 1/p",
				Value:       1000,
				Destination: &p,
			},
			&cli.UintFlag{
				Name:        "granularity",
				Usage:       "log2 of the number of encoded gaps between sparse-index anchors",
				Value:       uint(gcs.DefaultIndexLog2Granularity),
				Destination: &granularity,
			},
			&cli.StringFlag{
				Name:        "label",
				Usage:       "free-text label stored in the file's build-metadata block",
				Destination: &label,
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 2 {
				return fmt.Errorf("expected exactly 2 arguments: <input> <output>, got %d", c.Args().Len())
			}
			inputPath := c.Args().Get(0)
			outputPath := c.Args().Get(1)

			hashID, err := parseHashID(hashName)
			if err != nil {
				return err
			}
			if encoding != "raw" && encoding != "hex" {
				return fmt.Errorf("--hash must be raw or hex, got %q", encoding)
			}
			if granularity > 255 {
				return fmt.Errorf("--granularity must fit in a byte")
			}

			builder, err := gcs.NewBuilder(gcs.Config{
				HashID:               hashID,
				P:                    p,
				IndexLog2Granularity: uint8(granularity),
			})
			if err != nil {
				return err
			}

			in, err := lineread.Open(inputPath, lineread.DefaultChunkSize)
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer in.Close()

			klog.Infof("reading items from %s", inputPath)
			bar := progressbar.Default(-1, "ingesting")

			// Hashing is parallelized across a bounded pool of
			// runtime.NumCPU() workers, the same worker-pool shape as
			// cmd-x-index-sig-exists.go: a channel of work items drained by
			// the pool, with a single goroutine merging results into the
			// Builder so the Builder itself stays single-threaded.
			numWorkers := runtime.NumCPU()
			jobs := make(chan []byte, numWorkers)
			results := make(chan uint64, numWorkers)

			var workers sync.WaitGroup
			workers.Add(numWorkers)
			for i := 0; i < numWorkers; i++ {
				go func() {
					defer workers.Done()
					for item := range jobs {
						results <- gcshash.Sum64(hashID, item)
					}
				}()
			}
			go func() {
				workers.Wait()
				close(results)
			}()

			merged := make(chan error, 1)
			go func() {
				defer close(merged)
				// Keep draining results even after the first PutHash error,
				// so the workers (and the scan loop feeding them) never
				// block trying to hand off a result nobody is reading.
				var firstErr error
				for h := range results {
					if firstErr != nil {
						continue
					}
					if err := builder.PutHash(h); err != nil {
						metricsItemsIngested.WithLabelValues("rejected").Inc()
						firstErr = err
						continue
					}
					metricsItemsIngested.WithLabelValues("accepted").Inc()
					bar.Add(1)
				}
				if firstErr != nil {
					merged <- firstErr
				}
			}()

			scanner := in.Lines()
			lineNo := 0
			var scanErr error
		scanLoop:
			for scanner.Scan() {
				lineNo++
				line := scanner.Bytes()
				if len(line) == 0 {
					continue
				}
				var item []byte
				if encoding == "hex" {
					decoded := make([]byte, hex.DecodedLen(len(line)))
					n, err := hex.Decode(decoded, line)
					if err != nil {
						scanErr = fmt.Errorf("%w: line %d: %v", gcs.ErrBadInputLine, lineNo, err)
						break scanLoop
					}
					item = decoded[:n]
				} else {
					// scanner.Bytes() is reused on the next Scan, and the
					// workers read it concurrently, so it must be copied.
					item = append([]byte(nil), line...)
				}
				jobs <- item
			}
			close(jobs)
			if err := <-merged; err != nil {
				return err
			}
			if scanErr != nil {
				return scanErr
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("%w: %v", gcs.ErrIOFailure, err)
			}
			bar.Finish()

			var meta *indexmeta.Meta
			if label != "" {
				meta = &indexmeta.Meta{}
				if err := meta.AddString([]byte("label"), label); err != nil {
					return fmt.Errorf("build-metadata label too long: %w", err)
				}
			}

			start := time.Now()
			stats, err := builder.Seal(outputPath, meta)
			elapsed := time.Since(start)
			metricsBuildDuration.Observe(elapsed.Seconds())
			if err != nil {
				return err
			}

			klog.Infof("sealed %s: %s items (%s distinct), %s bucket universe, %s on disk, in %s",
				outputPath,
				humanize.Comma(int64(stats.ItemsIn)),
				humanize.Comma(int64(stats.ItemsOut)),
				humanize.Comma(int64(stats.N)),
				humanize.Bytes(uint64(stats.FileBytes)),
				elapsed,
			)
			return nil
		},
	}
}

func parseHashID(name string) (gcshash.ID, error) {
	switch name {
	case "sha1":
		return gcshash.SHA1Trunc64, nil
	case "siphash":
		return gcshash.SipHash24, nil
	default:
		return 0, fmt.Errorf("--hash-id must be sha1 or siphash, got %q", name)
	}
}

// Package cli implements the command-line interface for dta.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/statkit/dta/internal/export"
	"github.com/statkit/dta/internal/logctx"
	"github.com/statkit/dta/pkg/dta"
	"github.com/statkit/dta/pkg/fileutil"
	"github.com/statkit/dta/pkg/humanfmt"
	"github.com/statkit/dta/pkg/logging"
	"github.com/statkit/dta/pkg/source"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: dta <command> [options]\ncommands: info, convert")
	}

	switch args[0] {
	case "info":
		return runInfo(args[1:])
	case "convert":
		return runConvert(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// inputStream is a seekable input that must be closed after use.
type inputStream interface {
	io.ReadSeeker
	io.Closer
}

// openInput opens a local path via mmap or fetches an s3:// URL to a
// temp file.
func openInput(path string) (inputStream, error) {
	if bucket, key, ok := source.ParseS3URL(path); ok {
		ctx := logctx.WithStr(context.Background(), "input", path)
		client, err := source.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return client.Fetch(ctx, bucket, key)
	}
	return source.OpenMmap(path)
}

func resolveEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "":
		return nil, nil // package default
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unknown code page: %s", name)
	}
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	labels := fs.Bool("labels", false, "print value-label dictionaries")
	encName := fs.String("encoding", "", "code page for strings (windows-1252, latin1)")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("info requires exactly one input file")
	}
	logging.Init(*debug, *human)

	enc, err := resolveEncoding(*encName)
	if err != nil {
		return err
	}
	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	r, err := dta.Open(in, enc)
	if err != nil {
		return err
	}

	fmt.Printf("version:      %d\n", r.Version())
	fmt.Printf("variables:    %d\n", r.NVars())
	fmt.Printf("observations: %s\n", humanfmt.Count(int64(r.NObs())))
	if r.DataLabel() != "" {
		fmt.Printf("label:        %s\n", r.DataLabel())
	}
	if r.TimeStamp() != "" {
		fmt.Printf("timestamp:    %s\n", r.TimeStamp())
	}

	fmt.Println()
	varLabels := r.VariableLabels()
	formats := r.Formats()
	for i, name := range r.Names() {
		fmt.Printf("  %-32s  %-12s  %s\n", name, formats[i], varLabels[name])
	}

	if *labels {
		// The legacy layout stores value labels after the data block, so
		// the data has to be consumed first.
		if r.Version() < 117 {
			if _, err := r.Read(dta.ReadOptions{}); err != nil {
				return err
			}
		}
		sets, err := r.ValueLabels()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(sets))
		for name := range sets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("\n%s:\n", name)
			codes := make([]int, 0, len(sets[name]))
			for code := range sets[name] {
				codes = append(codes, int(code))
			}
			sort.Ints(codes)
			for _, code := range codes {
				fmt.Printf("  %12d  %s\n", code, sets[name][int32(code)])
			}
		}
	}
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	out := fs.String("out", "", "output parquet file")
	dates := fs.Bool("dates", true, "decode date columns to calendar values")
	categoricals := fs.Bool("categoricals", true, "resolve value labels to strings")
	missing := fs.Bool("missing", false, "keep missing-value sentinel symbols")
	encName := fs.String("encoding", "", "code page for strings (windows-1252, latin1)")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("--out is required")
	}
	if fs.NArg() != 1 {
		return errors.New("convert requires exactly one input file")
	}
	logging.Init(*debug, *human)

	enc, err := resolveEncoding(*encName)
	if err != nil {
		return err
	}
	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	start := time.Now()
	r, err := dta.Open(in, enc)
	if err != nil {
		return err
	}
	tbl, err := r.Read(dta.ReadOptions{
		ConvertDates:        *dates,
		ConvertCategoricals: *categoricals,
		ConvertMissing:      *missing,
	})
	if err != nil {
		return err
	}
	for _, warning := range r.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	err = fileutil.WriteTmpThenMove(*out, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := export.Parquet(f, tbl); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
	if err != nil {
		return err
	}

	info, err := os.Stat(*out)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s: %s rows, %s in %s\n",
		*out,
		humanfmt.Count(int64(tbl.NumRows())),
		humanfmt.Bytes(info.Size()),
		humanfmt.Duration(time.Since(start)))
	return nil
}

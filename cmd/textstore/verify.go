package main

import (
	"context"
	"fmt"
	"io"

	"github.com/INLOpen/textstore/config"
	"github.com/INLOpen/textstore/textstore"

	"golang.org/x/sync/errgroup"
)

// verifyStore checks that st holds exactly want, splitting the work into
// contiguous chunks with one Reader per worker.
func verifyStore(ctx context.Context, st *textstore.Store, want []string, workers int, opts textstore.ReaderOptions) error {
	n, err := st.NumStrings()
	if err != nil {
		return err
	}
	if n != uint64(len(want)) {
		return fmt.Errorf("store holds %d strings, input has %d", n, len(want))
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(want) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(want); start += chunk {
		start, end := start, min(start+chunk, len(want))
		g.Go(func() error {
			r := textstore.NewReader(st.Section(), opts)
			defer r.Close()
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				got, err := r.ExtractString(uint64(i))
				if err != nil {
					return err
				}
				if got != want[i] {
					return fmt.Errorf("string %d differs: got %q, want %q", i, got, want[i])
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func runVerify(args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("verify")
	storePath := fs.String("store", "", "Store file to check")
	in := fs.String("in", "", "Input file the store was built from")
	workers := fs.Int("workers", 0, "Number of concurrent checkers (default from config)")
	delimName := fs.String("delim", "lines", "Record delimiter: lines or nul")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storePath == "" || *in == "" {
		return fmt.Errorf("verify needs -store and -in: %w", errUsage)
	}
	delim, err := delimiter(*delimName)
	if err != nil {
		return err
	}

	a, err := newApp(*configPath, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	var want []string
	if err := readRecords(*in, delim, func(rec []byte) error {
		want = append(want, string(rec))
		return nil
	}); err != nil {
		return err
	}

	st, err := textstore.OpenFile(*storePath, a.readerOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if timeout := config.ParseDuration(a.cfg.Verify.Timeout, 0, a.logger); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	n := *workers
	if n <= 0 {
		n = a.cfg.Verify.Workers
	}
	if err := verifyStore(ctx, st, want, n, a.readerOptions()); err != nil {
		return fmt.Errorf("verification of %s failed: %w", *storePath, err)
	}
	_, err = fmt.Fprintf(stdout, "ok: %d strings match\n", len(want))
	return err
}

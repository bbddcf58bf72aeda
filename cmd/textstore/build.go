package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/INLOpen/textstore/textstore"
)

func runBuild(args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("build")
	in := fs.String("in", "", "Input file with one string per record")
	out := fs.String("out", "", "Store file to create")
	blockSize := fs.Int("block-size", 0, "Block size threshold in bytes (default from config)")
	delimName := fs.String("delim", "lines", "Record delimiter: lines or nul")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("build needs -in and -out: %w", errUsage)
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

	start := time.Now()
	var built *textstore.Writer
	err = textstore.WriteFile(*out, a.writerOptions(*blockSize), func(w *textstore.Writer) error {
		built = w
		return readRecords(*in, delim, w.Append)
	})
	if err != nil {
		return errors.Join(fmt.Errorf("failed to build %s", *out), err)
	}
	a.logger.Info("Built text store", "path", *out, "strings", built.NumStrings(), "blocks", built.NumBlocks(), "duration", time.Since(start))
	_, err = fmt.Fprintf(stdout, "wrote %d strings in %d blocks to %s (%d bytes)\n", built.NumStrings(), built.NumBlocks(), *out, built.Size())
	return err
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/term"
)

func delimiter(name string) (byte, error) {
	switch name {
	case "lines", "":
		return '\n', nil
	case "nul":
		return 0, nil
	}
	return 0, fmt.Errorf("unknown delimiter %q, want lines or nul", name)
}

// readRecords calls fn for every delim-terminated record of path. A final
// record without a terminator is still passed on.
func readRecords(path string, delim byte, fn func(rec []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	for {
		rec, err := br.ReadBytes(delim)
		if len(rec) > 0 {
			if rec[len(rec)-1] == delim {
				rec = rec[:len(rec)-1]
			}
			if ferr := fn(rec); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input %s: %w", path, err)
		}
	}
}

// stringPrinter writes strings raw when stdout is piped and quoted with
// their index when it is a terminal.
type stringPrinter struct {
	w           io.Writer
	interactive bool
}

func newStringPrinter(w io.Writer) *stringPrinter {
	p := &stringPrinter{w: w}
	if f, ok := w.(*os.File); ok {
		p.interactive = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *stringPrinter) print(ix uint64, s string) error {
	var err error
	if p.interactive {
		_, err = fmt.Fprintf(p.w, "%d\t%s\n", ix, strconv.Quote(s))
	} else {
		_, err = fmt.Fprintf(p.w, "%s\n", s)
	}
	return err
}

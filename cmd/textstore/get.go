package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/INLOpen/textstore/textstore"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// parseIDs turns "1,4-9" into a bitmap. Ranges are inclusive.
func parseIDs(list string) (*roaring64.Bitmap, error) {
	ids := roaring64.New()
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.ParseUint(lo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		if !isRange {
			ids.Add(a)
			continue
		}
		b, err := strconv.ParseUint(hi, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id range %q: %w", part, err)
		}
		if b < a {
			return nil, fmt.Errorf("invalid id range %q: end before start", part)
		}
		if b == ^uint64(0) {
			return nil, fmt.Errorf("invalid id range %q: end too large", part)
		}
		ids.AddRange(a, b+1)
	}
	if ids.IsEmpty() {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}

func runGet(args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("get")
	storePath := fs.String("store", "", "Store file to read")
	idList := fs.String("ids", "", "Comma separated string indices or ranges, e.g. 1,4-9")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storePath == "" || *idList == "" {
		return fmt.Errorf("get needs -store and -ids: %w", errUsage)
	}
	ids, err := parseIDs(*idList)
	if err != nil {
		return err
	}

	a, err := newApp(*configPath, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := textstore.OpenFile(*storePath, a.readerOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	p := newStringPrinter(stdout)
	it := ids.Iterator()
	for it.HasNext() {
		ix := it.Next()
		s, err := st.ExtractString(ix)
		if err != nil {
			return err
		}
		if err := p.print(ix, s); err != nil {
			return err
		}
	}
	stats := st.Stats()
	a.logger.Debug("Extracted strings", "count", ids.GetCardinality(), "block_decodes", stats.BlockDecodes, "cache_hits", stats.CacheHits)
	return nil
}

func runDump(args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("dump")
	storePath := fs.String("store", "", "Store file to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storePath == "" {
		return fmt.Errorf("dump needs -store: %w", errUsage)
	}

	a, err := newApp(*configPath, stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := textstore.OpenFile(*storePath, a.readerOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	idx, err := st.Index()
	if err != nil {
		return err
	}
	p := newStringPrinter(stdout)
	for i := 0; i < idx.NumBlocks(); i++ {
		b, err := st.DecodeBlock(i)
		if err != nil {
			return err
		}
		for j := 0; j < b.Len(); j++ {
			if err := p.print(b.Info.From+uint64(j), string(b.String(j))); err != nil {
				return err
			}
		}
	}
	return nil
}

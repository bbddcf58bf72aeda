package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/INLOpen/textstore/compressors"
	"github.com/INLOpen/textstore/core"
	"github.com/INLOpen/textstore/textstore"

	"github.com/caio/go-tdigest/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/process"
)

// storeStats summarises a store. Every block is decoded once with the cache
// off so the latency quantiles reflect real decodes.
type storeStats struct {
	Blocks       int
	Strings      uint64
	FileBytes    int64
	EncodedBytes int64
	PlainBytes   int64
	P50, P90     time.Duration
	P99          time.Duration
	Alternatives map[string]int64
}

func collectStats(st *textstore.Store, names []string, opts textstore.ReaderOptions) (*storeStats, error) {
	idx, err := st.Index()
	if err != nil {
		return nil, err
	}
	s := &storeStats{
		Blocks:       idx.NumBlocks(),
		Strings:      idx.NumStrings(),
		FileBytes:    st.FileSize(),
		EncodedBytes: idx.IndexOffset() - core.SectionHeaderSize,
		Alternatives: make(map[string]int64, len(names)),
	}

	comps := make(map[string]core.Compressor, len(names))
	for _, name := range names {
		c, err := compressors.ByName(name)
		if err != nil {
			return nil, err
		}
		comps[name] = c
	}

	td, err := tdigest.New()
	if err != nil {
		return nil, fmt.Errorf("tdigest.New failed: %w", err)
	}

	opts.CacheCapacity = -1
	r := textstore.NewReader(st.Section(), opts)
	defer r.Close()

	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)
	for i := 0; i < s.Blocks; i++ {
		start := time.Now()
		b, err := r.DecodeBlock(i)
		if err != nil {
			return nil, err
		}
		if err := td.AddWeighted(float64(time.Since(start)), 1); err != nil {
			return nil, err
		}
		s.PlainBytes += int64(len(b.Pool))
		for name, c := range comps {
			buf.Reset()
			if err := c.CompressTo(buf, b.Pool); err != nil {
				return nil, fmt.Errorf("%s failed on block %d: %w", name, i, err)
			}
			s.Alternatives[name] += int64(buf.Len())
		}
	}
	if s.Blocks > 0 {
		s.P50 = time.Duration(td.Quantile(0.5))
		s.P90 = time.Duration(td.Quantile(0.9))
		s.P99 = time.Duration(td.Quantile(0.99))
	}
	return s, nil
}

func ratio(plain, encoded int64) string {
	if encoded == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", float64(plain)/float64(encoded))
}

func runStats(args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("stats")
	storePath := fs.String("store", "", "Store file to inspect")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storePath == "" {
		return fmt.Errorf("stats needs -store: %w", errUsage)
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

	s, err := collectStats(st, a.cfg.Store.CompressionReport, a.readerOptions())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", *storePath)
	fmt.Fprintf(tw, "file bytes\t%d\n", s.FileBytes)
	fmt.Fprintf(tw, "strings\t%d\n", s.Strings)
	fmt.Fprintf(tw, "blocks\t%d\n", s.Blocks)
	fmt.Fprintf(tw, "plain bytes\t%d\n", s.PlainBytes)
	fmt.Fprintf(tw, "encoded bytes\t%d\t%s\n", s.EncodedBytes, ratio(s.PlainBytes, s.EncodedBytes))
	fmt.Fprintf(tw, "decode p50/p90/p99\t%s / %s / %s\n", s.P50, s.P90, s.P99)
	for _, name := range a.cfg.Store.CompressionReport {
		fmt.Fprintf(tw, "as %s\t%d\t%s\n", name, s.Alternatives[name], ratio(s.PlainBytes, s.Alternatives[name]))
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			fmt.Fprintf(tw, "process rss\t%d\n", mi.RSS)
		}
	}
	if du, err := disk.Usage(filepath.Dir(*storePath)); err == nil {
		fmt.Fprintf(tw, "disk free\t%d\n", du.Free)
	}
	return tw.Flush()
}

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chronos-tachyon/arcflate"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

type mode byte

const (
	modeCompress mode = iota
	modeDecompress
	modeTest
	modeProbe
)

const probeSize = 1 << 16

var suffixes = []struct {
	suffix string
	format arcflate.Format
}{
	{".gz", arcflate.GZIPFormat},
	{".zz", arcflate.ZlibFormat},
	{".deflate", arcflate.RawFormat},
	{".zst", arcflate.ZstdFormat},
}

func suffixFor(format arcflate.Format) string {
	for _, row := range suffixes {
		if row.format == format {
			return row.suffix
		}
	}
	return ".gz"
}

func stripSuffix(name string) (string, bool) {
	for _, row := range suffixes {
		if strings.HasSuffix(name, row.suffix) && len(name) > len(row.suffix) {
			return name[:len(name)-len(row.suffix)], true
		}
	}
	return name, false
}

func makeOptions(ctx context.Context, name string) []arcflate.Option {
	logger := log.Logger.With().Str("filename", name).Logger()

	opts := make([]arcflate.Option, 0, 12)
	opts = append(opts,
		arcflate.WithTracers(arcflate.Log(logger)),
		arcflate.WithProgress(arcflate.ContextProgress(ctx)),
		arcflate.WithFormat(flagFormat.Value),
		arcflate.WithCompressLevel(flagCLevel.Value),
		arcflate.WithWindowBits(flagWBits.Value),
		arcflate.WithMatchFinder(flagMatchFinder.Value),
		arcflate.WithDeflate64(flagDeflate64),
		arcflate.WithNSIS(flagNSIS),
	)
	if flagPasses != 0 {
		opts = append(opts, arcflate.WithNumPasses(flagPasses))
	}
	if flagFastBytes != 0 {
		opts = append(opts, arcflate.WithFastBytes(flagFastBytes))
	}
	if flagMatchCycles != 0 {
		opts = append(opts, arcflate.WithMatchCycles(flagMatchCycles))
	}
	return opts
}

func processFile(ctx context.Context, m mode, name string) error {
	if flagStdout || m == modeTest || m == modeProbe {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		return processStream(ctx, m, name, os.Stdout, f)
	}

	var outName string
	switch m {
	case modeCompress:
		format := flagFormat.Value
		if format == arcflate.DefaultFormat {
			format = arcflate.GZIPFormat
		}
		outName = name + suffixFor(format)
	case modeDecompress:
		var ok bool
		outName, ok = stripSuffix(name)
		if !ok {
			return fmt.Errorf("unknown suffix -- ignored")
		}
	}

	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if flagForce {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(outName, flags, 0666)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	if err := processStream(ctx, m, filepath.Base(name), out, in); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := out.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		_ = os.Remove(outName)
		return err
	}

	log.Logger.Debug().
		Str("input", name).
		Str("output", outName).
		Msg("done")

	if !flagKeep {
		_ = in.Close()
		return os.Remove(name)
	}
	return nil
}

func processStream(ctx context.Context, m mode, name string, w io.Writer, r io.Reader) error {
	opts := makeOptions(ctx, name)
	switch m {
	case modeCompress:
		return compress(w, r, name, opts)
	case modeDecompress:
		return decompress(w, r, opts)
	case modeTest:
		return decompress(io.Discard, r, opts)
	default:
		return probe(r, name)
	}
}

func compress(w io.Writer, r io.Reader, name string, opts []arcflate.Option) error {
	fw := arcflate.NewWriter(w, opts...)

	if fw.Format() == arcflate.GZIPFormat {
		header := arcflate.Header{
			LastModified: flagLastModified.Value,
			OSType:       flagOSType.Value,
		}
		switch {
		case flagFileName != "":
			header.FileName = flagFileName
		case name != "-":
			header.FileName = filepath.Base(name)
		}
		if err := fw.SetHeader(header); err != nil {
			return err
		}
	}

	if _, err := io.Copy(fw, r); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func decompress(w io.Writer, r io.Reader, opts []arcflate.Option) error {
	fr := arcflate.NewReader(r, opts...)
	nn, err := io.Copy(w, fr)
	if err != nil {
		_ = fr.Close()
		var ae *arcflate.Error
		if errors.As(err, &ae) && ae.Kind == arcflate.KindDataAfterEnd {
			log.Logger.Warn().
				Int64("nn", nn).
				Err(err).
				Msg("trailing garbage ignored")
			return nil
		}
		return err
	}
	return fr.Close()
}

func probe(r io.Reader, name string) error {
	head := make([]byte, probeSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	head = head[:n]

	format := arcflate.DetectFormat(head)
	method := arcflate.DeflateMethod
	if format == arcflate.ZstdFormat {
		method = arcflate.ZstdMethod
	}
	event := log.Logger.Info().
		Str("filename", name).
		Str("format", format.String()).
		Str("method", method.String())

	switch format {
	case arcflate.GZIPFormat:
		event = event.Str("gzip", arcflate.IsArcGz(head).String())
	case arcflate.ZstdFormat:
		info, err := arcflate.ProbeZstd(io.MultiReader(bytes.NewReader(head), r))
		event = event.
			Uint64("frames", info.NumDataFrames).
			Uint64("skipFrames", info.NumSkipFrames).
			Uint64("blocks", info.NumBlocks).
			Uint64("physicalSize", info.PhySize).
			Str("details", info.Method())
		if err != nil {
			event = event.AnErr("problem", err)
		}
	}
	event.Msg("probe")
	return nil
}

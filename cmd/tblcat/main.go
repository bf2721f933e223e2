// Command tblcat concatenates tabular data files into one stream,
// driving the broker the same way an embedded host would: every input
// is registered as a resource and walked record by record, so plain,
// gzip- and zstd-compressed files mix freely.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/geokit/databroker/broker"
	"github.com/geokit/databroker/codec"
	"github.com/geokit/databroker/config"
	"github.com/geokit/databroker/family"
	"github.com/geokit/databroker/record"
)

func main() {
	var (
		output     = pflag.StringP("output", "o", "", "Output file (default stdout)")
		snapshot   = pflag.String("snapshot", "", "Write a deterministic CBOR snapshot of the assembled table instead of text")
		configPath = pflag.String("config", "", "Defaults file (YAML); $DATABROKER_CONFIG when empty")
		text       = pflag.BoolP("text", "t", false, "Treat inputs as free-form text tables")
		fileBreaks = pflag.Bool("file-breaks", false, "Start a new segment at every input file boundary")
		verbose    = pflag.BoolP("verbose", "v", false, "Debug logging to stderr")
	)
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tblcat [flags] [file ...]")
		fmt.Fprintln(os.Stderr, "Reads from stdin when no files are given.")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if err := run(pflag.Args(), *output, *snapshot, *configPath, *text, *fileBreaks, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "tblcat: %v\n", err)
		os.Exit(1)
	}
}

func run(inputs []string, output, snapshot, configPath string, text, fileBreaks, verbose bool) error {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		broker.SetLogger(logger)
	}

	defaults, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ses, err := broker.New("tblcat", defaults.Padding, broker.NoExit, broker.WithDefaults(defaults))
	if err != nil {
		return err
	}
	defer ses.Destroy()

	fam := family.Dataset
	mode := record.ModeData
	if text {
		fam = family.TextSet
		mode = record.ModeText
	}

	if len(inputs) == 0 {
		if _, err := ses.Register(fam, family.MethodStream, family.GeomNone, family.In, os.Stdin); err != nil {
			return err
		}
	}
	for _, name := range inputs {
		if _, err := ses.Register(fam, family.MethodFile, family.GeomNone, family.In, name); err != nil {
			return err
		}
	}

	var vname string
	switch {
	case snapshot != "":
		vname, err = ses.OpenVirtualFile(fam, family.GeomNone, family.Out, nil)
	case output != "":
		_, err = ses.Register(fam, family.MethodFile, family.GeomNone, family.Out, output)
	default:
		_, err = ses.Register(fam, family.MethodStream, family.GeomNone, family.Out, os.Stdout)
	}
	if err != nil {
		return err
	}

	inMode := mode
	if fileBreaks {
		inMode |= record.FileBreak
	}
	if err := ses.BeginIO(fam, family.In, inMode); err != nil {
		return err
	}
	if err := ses.BeginIO(fam, family.Out, mode); err != nil {
		return err
	}

	for {
		rec, err := ses.GetRecord(mode)
		if err != nil {
			return err
		}
		if rec.Kind == record.KindEOF {
			break
		}
		if rec.Kind == record.KindNextFile {
			// A file boundary becomes an ordinary segment boundary.
			rec = record.SegHeader("")
		}
		if err := ses.PutRecord(mode, rec); err != nil {
			return err
		}
	}

	if err := ses.EndIO(family.In); err != nil {
		return err
	}
	if err := ses.EndIO(family.Out); err != nil {
		return err
	}

	if snapshot != "" {
		payload, err := ses.ReadVirtualFile(vname)
		if err != nil {
			return err
		}
		data, err := codec.Snapshot(payload)
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshot, data, 0o644); err != nil {
			return err
		}
	}

	if verbose {
		rec, seg, tbl := ses.Counters(family.In)
		broker.Logger().Info("done",
			zap.Int("records", rec),
			zap.Int("segments", seg),
			zap.Int("tables", tbl))
	}
	return nil
}

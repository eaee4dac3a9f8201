// pycdump prints the object tree held in pyc files or raw marshal data.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/pycmarshal/marshal"
	"github.com/pycmarshal/marshal/internal/compress"
)

var log = commonlog.GetLogger("pycdump")

var dumper = spew.ConfigState{Indent: "  ", SortKeys: true}

func main() {

	var (
		cfgPath   = flag.String("config", "", "read settings from this TOML file")
		version   = flag.String("version", "", "interpreter version of raw input, e.g. 3.11")
		raw       = flag.Bool("raw", false, "input is bare marshal data without a pyc header")
		resolve   = flag.Bool("resolve", false, "expand every non-cyclic reference")
		optimize  = flag.Bool("optimize", false, "drop unused references")
		minimize  = flag.Bool("minimize", false, "share repeated constants")
		roundtrip = flag.Bool("roundtrip", false, "check the input re-encodes byte for byte")
		maxDepth  = flag.Int("maxdepth", 0, "nesting limit, 0 for the platform default")
		output    = flag.String("o", "", "write the result to this file (.zz, .sz and .zst are compressed)")
		verbose   = flag.Int("v", 0, "log verbosity")
	)
	flag.Parse()

	cfg := &config{}
	if *cfgPath != "" {
		var err error
		if cfg, err = loadConfig(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	// flags given explicitly override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "version":
			cfg.Version = *version
		case "raw":
			cfg.Raw = *raw
		case "resolve":
			cfg.Resolve = *resolve
		case "optimize":
			cfg.Optimize = *optimize
		case "minimize":
			cfg.Minimize = *minimize
		case "roundtrip":
			cfg.RoundTrip = *roundtrip
		case "maxdepth":
			cfg.MaxDepth = *maxDepth
		case "o":
			cfg.Output = *output
		case "v":
			cfg.Verbosity = *verbose
		}
	})

	commonlog.Configure(cfg.Verbosity, nil)

	if flag.NArg() == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Errorf("reading stdin: %s", err)
			os.Exit(1)
		}
		if err := process(cfg, "stdin", b, os.Stdout); err != nil {
			log.Errorf("error processing stdin: %s", err)
			os.Exit(1)
		}
		return
	}

	failed := false
	for _, arg := range flag.Args() {
		b, err := compress.ReadFile(arg)
		if err == nil {
			err = process(cfg, arg, b, os.Stdout)
		}
		if err != nil {
			log.Errorf("error processing %s: %s", arg, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// process decodes one input, applies the requested passes and dumps the
// result to w.
func process(cfg *config, name string, b []byte, w io.Writer) error {

	v, err := cfg.version()
	if err != nil {
		return err
	}

	d := marshal.NewDecoder(v)
	if cfg.MaxDepth > 0 {
		d.MaxDepth = cfg.MaxDepth
	}

	p := &marshal.PycFile{Version: v}
	if cfg.Raw {
		if v == (marshal.Version{}) {
			return errors.New("raw input needs -version")
		}
		if p.Object, p.References, err = d.Unmarshal(b); err != nil {
			return err
		}
	} else {
		if p, err = d.UnmarshalPyc(b); err != nil {
			return err
		}
		if v != (marshal.Version{}) && v != p.Version {
			log.Warningf("%s: header says %s, not %s", name, p.Version, v)
		}
	}
	log.Infof("%s: %s, %d references", name, p.Version, len(p.References))

	if cfg.RoundTrip {
		out, err := encode(cfg, p)
		if err != nil {
			return err
		}
		if !bytes.Equal(b, out) {
			return fmt.Errorf("re-encoding differs: %d bytes in, %d bytes out", len(b), len(out))
		}
		log.Infof("%s: round trip ok", name)
	}

	passes := []struct {
		on  bool
		tag string
		f   func(marshal.Value, []marshal.Value) (marshal.Value, []marshal.Value, error)
	}{
		{cfg.Optimize, "optimize", marshal.Optimize},
		{cfg.Resolve, "resolve", marshal.Resolve},
		{cfg.Minimize, "minimize", marshal.Minimize},
	}
	for _, pass := range passes {
		if !pass.on {
			continue
		}
		if p.Object, p.References, err = pass.f(p.Object, p.References); err != nil {
			return fmt.Errorf("%s: %w", pass.tag, err)
		}
		log.Debugf("%s: after %s, %d references", name, pass.tag, len(p.References))
	}

	if cfg.Output != "" {
		out, err := encode(cfg, p)
		if err != nil {
			return err
		}
		if err := compress.WriteFile(cfg.Output, out, 0o644); err != nil {
			return err
		}
		log.Infof("wrote %s", cfg.Output)
	}

	fmt.Fprintf(w, "# %s (%s)\n", name, p.Version)
	dumper.Fdump(w, p.Object)
	for i, r := range p.References {
		fmt.Fprintf(w, "# ref %d\n", i)
		dumper.Fdump(w, r)
	}
	return nil
}

func encode(cfg *config, p *marshal.PycFile) ([]byte, error) {
	e := marshal.NewEncoder(p.Version, marshal.RevisionFor(p.Version))
	if cfg.MaxDepth > 0 {
		e.MaxDepth = cfg.MaxDepth
	}
	if !cfg.Raw {
		return e.DumpPyc(p)
	}
	return e.Marshal(p.Object, p.References)
}

package config

import (
	"flag"
	"fmt"
	"io"

	"photoconv/contracts"
)

// ParseFlags parses args (without the program name) into cfg. When -config
// is given the file is loaded first so explicit flags override its values.
func ParseFlags(cfg *Config, args []string) error {
	scratch := *cfg
	pre := newFlagSet(&scratch)
	pre.SetOutput(io.Discard)
	if err := pre.Parse(args); err != nil {
		// Report the error through the real flag set below.
		return newFlagSet(cfg).Parse(args)
	}
	if scratch.ConfigPath != "" {
		if err := LoadFile(cfg, scratch.ConfigPath); err != nil {
			return err
		}
	}

	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("photoconv", flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "YAML config file")
	fs.StringVar(&cfg.InputDir, "input", cfg.InputDir, "Input directory")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Output directory")

	fs.Var(&formatValue{&cfg.Format}, "format", "Target format: jpeg | png | pdf")
	fs.Float64Var(&cfg.Quality, "quality", cfg.Quality, "Quality 0-1 (or 1-100)")
	fs.Var(&cfg.TargetSize, "target-size", "JPEG size target, e.g. 200KB (0 disables)")
	fs.Var(&policyValue{&cfg.Metadata}, "metadata", "Metadata policy: strip | keepBasic")

	fs.IntVar(&cfg.Thumbnail.MaxEdge, "thumb-edge", cfg.Thumbnail.MaxEdge, "Thumbnail longest edge in pixels")
	fs.IntVar(&cfg.Thumbnail.Quality, "thumb-quality", cfg.Thumbnail.Quality, "Thumbnail JPEG quality 1-100")

	fs.Var(&workerModeValue{&cfg.Worker.Mode}, "worker", "Worker mode: inprocess | process | none")
	fs.StringVar(&cfg.Worker.Command, "worker-command", cfg.Worker.Command, "Worker executable (default: self)")
	fs.BoolVar(&cfg.ServeWorker, "serve-worker", cfg.ServeWorker, "Run as a conversion worker on stdin/stdout")

	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Watch the input directory for new images")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append logs to file")
	fs.Var(&colorValue{&cfg.Color}, "color", "Color output: auto | always | never")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as -verbose")
	return fs
}

type formatValue struct{ p *contracts.TargetFormat }

func (v *formatValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v *formatValue) Set(s string) error {
	switch contracts.TargetFormat(s) {
	case contracts.FormatJPEG, contracts.FormatPNG, contracts.FormatPDF:
		*v.p = contracts.TargetFormat(s)
		return nil
	case "jpg":
		*v.p = contracts.FormatJPEG
		return nil
	}
	return fmt.Errorf("invalid format %q (use 'jpeg', 'png' or 'pdf')", s)
}

type policyValue struct{ p *contracts.MetadataPolicy }

func (v *policyValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v *policyValue) Set(s string) error {
	switch contracts.MetadataPolicy(s) {
	case contracts.MetadataStrip, contracts.MetadataKeepBasic:
		*v.p = contracts.MetadataPolicy(s)
		return nil
	}
	return fmt.Errorf("invalid metadata policy %q", s)
}

type workerModeValue struct{ p *WorkerMode }

func (v *workerModeValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v *workerModeValue) Set(s string) error {
	switch WorkerMode(s) {
	case WorkerInProcess, WorkerProcess, WorkerNone:
		*v.p = WorkerMode(s)
		return nil
	}
	return fmt.Errorf("invalid worker mode %q", s)
}

type colorValue struct{ p *ColorMode }

func (v *colorValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v *colorValue) Set(s string) error {
	switch ColorMode(s) {
	case ColorAuto, ColorAlways, ColorNever:
		*v.p = ColorMode(s)
		return nil
	}
	return fmt.Errorf("invalid color mode %q", s)
}

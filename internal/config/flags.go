package config

import "flag"

// Flags holds the command-line overrides. A zero value overrides nothing.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	Strict     bool
	Extended   bool
	Normalize  bool
}

// Register binds the global flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&f.Strict, "strict", false, "Reject files with repeated sections")
}

// RegisterWrite binds the flags of commands that write PSK files.
func (f *Flags) RegisterWrite(fs *flag.FlagSet) {
	fs.BoolVar(&f.Extended, "extended", false, "Write optional sections (extra UVs, colors, normals, morphs)")
	fs.BoolVar(&f.Normalize, "normalize", false, "Sort and normalize vertex weights before writing")
}

// apply applies flag overrides to cfg.
func (f Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Strict {
		cfg.Read.Strict = true
	}
	if f.Extended {
		cfg.Write.Extended = true
	}
	if f.Normalize {
		cfg.Write.NormalizeWeights = true
	}
}

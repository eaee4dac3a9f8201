package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/pycmarshal/marshal"
)

// config holds the settings a -config file may provide. Flags given on the
// command line win over the file.
type config struct {
	Version   string `toml:"version"`
	Raw       bool   `toml:"raw"`
	Resolve   bool   `toml:"resolve"`
	Optimize  bool   `toml:"optimize"`
	Minimize  bool   `toml:"minimize"`
	RoundTrip bool   `toml:"roundtrip"`
	MaxDepth  int    `toml:"max_depth"`
	Verbosity int    `toml:"verbosity"`
	Output    string `toml:"output"`
}

func loadConfig(path string) (*config, error) {
	var c config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("%s: unknown keys %v", path, undec)
	}
	return &c, nil
}

// version returns the configured interpreter version, or the zero Version
// when none was set.
func (c *config) version() (marshal.Version, error) {
	if c.Version == "" {
		return marshal.Version{}, nil
	}
	return marshal.ParseVersion(c.Version)
}

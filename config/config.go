package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no explicit
// path is given. There is no other discovery; configuration is
// deterministic or absent.
const EnvVar = "DATABROKER_CONFIG"

// Defaults holds the session settings a host may pin in a config file.
type Defaults struct {
	// Padding is the default boundary-row padding width for gridded data.
	Padding int `yaml:"padding"`

	// Separator is the column separator for ASCII table output.
	Separator string `yaml:"separator"`

	// ColumnMajor requests column-major layout for finalized matrix output.
	ColumnMajor bool `yaml:"column_major"`

	// InitialRows is the starting row capacity of a growable output
	// container; it doubles on overflow.
	InitialRows int `yaml:"initial_rows"`
}

// Standard returns the built-in defaults used when no config file is
// present.
func Standard() Defaults {
	return Defaults{
		Padding:     2,
		Separator:   "\t",
		InitialRows: 64,
	}
}

// Load reads defaults from path, or from $DATABROKER_CONFIG when path
// is empty. With neither set, the built-in defaults are returned.
func Load(path string) (Defaults, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Standard(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, fmt.Errorf("read config %s: %w", path, err)
	}

	d := Standard()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return Defaults{}, fmt.Errorf("config %s: %w", path, err)
	}
	return d, nil
}

func (d Defaults) validate() error {
	if d.Padding < 0 {
		return fmt.Errorf("padding must be non-negative, got %d", d.Padding)
	}
	if d.InitialRows < 1 {
		return fmt.Errorf("initial_rows must be positive, got %d", d.InitialRows)
	}
	return nil
}

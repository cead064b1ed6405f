// Package config loads the optional YAML settings file. Its values sit
// underneath the command line: a flag that was set explicitly always wins.
package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// File mirrors the YAML document. Pointer fields distinguish "absent" from
// the zero value.
type File struct {
	Patterns          []string `yaml:"patterns"`
	Regex             *bool    `yaml:"regex"`
	CaseInsensitive   *bool    `yaml:"case_insensitive"`
	RemovePageNumbers *bool    `yaml:"remove_page_numbers"`
	OutputSuffix      *string  `yaml:"output_suffix"`
	OutputDir         *string  `yaml:"output_dir"`
	Backup            *bool    `yaml:"backup"`
	Converter         *string  `yaml:"converter"`
}

// Load reads and validates the file at path.
func Load(ctx context.Context, path string) (*File, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var cfg File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that flags would also reject.
func (c *File) Validate() error {
	for i, p := range c.Patterns {
		if p == "" {
			return errors.Errorf("patterns[%d] is empty", i)
		}
	}
	if c.OutputSuffix != nil && strings.ContainsAny(*c.OutputSuffix, `/\`) {
		return errors.Errorf("output_suffix must not contain a path separator: %q", *c.OutputSuffix)
	}
	return nil
}

// ApplyTo copies each value present in the file onto the matching flag of
// fs, unless that flag was set on the command line or fs has no such flag.
// An explicit --output on the command line also suppresses output_dir.
func (c *File) ApplyTo(fs *pflag.FlagSet) error {
	set := func(name, value string) error {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			return nil
		}
		if err := fs.Set(name, value); err != nil {
			return errors.Errorf("applying config value for --%s: %w", name, err)
		}
		return nil
	}
	setBool := func(name string, v *bool) error {
		if v == nil {
			return nil
		}
		return set(name, strconv.FormatBool(*v))
	}
	setString := func(name string, v *string) error {
		if v == nil {
			return nil
		}
		return set(name, *v)
	}

	if f := fs.Lookup("remove"); f != nil && !f.Changed {
		for _, p := range c.Patterns {
			if err := fs.Set("remove", p); err != nil {
				return errors.Errorf("applying config pattern %q: %w", p, err)
			}
		}
	}

	outputDir := c.OutputDir
	if f := fs.Lookup("output"); f != nil && f.Changed {
		outputDir = nil
	}

	var noBackup *bool
	if c.Backup != nil {
		v := !*c.Backup
		noBackup = &v
	}

	for _, err := range []error{
		setBool("regex", c.Regex),
		setBool("case-insensitive", c.CaseInsensitive),
		setBool("remove-page-numbers", c.RemovePageNumbers),
		setBool("no-backup", noBackup),
		setString("output-suffix", c.OutputSuffix),
		setString("output_dir", outputDir),
		setString("converter", c.Converter),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

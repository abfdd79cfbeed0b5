package config

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v2"

	"github.com/torchstack/torchlink/pkg/cuda"
	"github.com/torchstack/torchlink/pkg/env"
	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/global"
)

// Config is a parsed torchlink.yaml.
type Config struct {
	Name    string `json:"name,omitempty" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version"`

	// GPU is nil when the file leaves the choice to the resolved
	// installation.
	GPU *bool `json:"gpu,omitempty" yaml:"gpu"`

	Variant     string   `json:"variant,omitempty" yaml:"variant"`
	LinkPython  bool     `json:"link_python,omitempty" yaml:"link_python"`
	Sources     []string `json:"sources,omitempty" yaml:"sources"`
	CUDASources []string `json:"cuda_sources,omitempty" yaml:"cuda_sources"`
	IncludeDirs []string `json:"include_dirs,omitempty" yaml:"include_dirs"`
	LinkDirs    []string `json:"link_dirs,omitempty" yaml:"link_dirs"`
	Libraries   []string `json:"libraries,omitempty" yaml:"libraries"`
	ArchList    []string `json:"arch_list,omitempty" yaml:"arch_list"`

	arches []cuda.Arch
}

func DefaultConfig() *Config {
	return &Config{
		Name: "torch_ext",
	}
}

func FromYAML(contents []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, errors.Configf("Failed to parse config yaml: %s", err)
	}
	if len(contents) != 0 {
		if err := Validate(string(contents), ""); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// ValidateAndComplete normalizes the parsed fields and reports every
// problem at once.
func (c *Config) ValidateAndComplete(projectDir string) error {
	errs := []string{}

	if c.Name == "" {
		c.Name = DefaultConfig().Name
	}

	if c.Version != "" {
		if _, err := goversion.NewVersion(c.Version); err != nil {
			errs = append(errs, fmt.Sprintf("invalid version %q: %s", c.Version, err))
		}
	}

	if c.Variant != "" {
		variant, err := env.NormalizeCUDAVersion(c.Variant)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			c.Variant = variant
		}
	}

	if c.GPU != nil && !*c.GPU {
		if len(c.CUDASources) > 0 {
			errs = append(errs, "cuda_sources requires gpu to be enabled")
		}
		if len(c.ArchList) > 0 {
			errs = append(errs, "arch_list requires gpu to be enabled")
		}
	}

	if len(c.ArchList) > 0 {
		arches, err := cuda.ParseList(strings.Join(c.ArchList, ";"))
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			c.arches = arches
		}
	}

	if len(errs) > 0 {
		return errors.Configf("Invalid %s: %s", global.ConfigFilename, strings.Join(errs, "; "))
	}
	return nil
}

// GPUEnabled resolves the gpu field against what the installation
// offers. available is what the resolved installation supports.
func (c *Config) GPUEnabled(available bool) (bool, error) {
	if c.GPU == nil {
		return available, nil
	}
	if *c.GPU && !available {
		return false, errors.Configf("gpu is enabled in %s, but the resolved libtorch build has no accelerator support", global.ConfigFilename)
	}
	return *c.GPU, nil
}

// Arches returns the parsed arch_list. Empty means detect at build
// time.
func (c *Config) Arches() []cuda.Arch {
	return c.arches
}

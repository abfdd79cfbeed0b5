package config

import (
	"os"
	"path"
	"path/filepath"

	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/files"
)

const maxSearchDepth = 100

// GetProjectDir returns the project's root directory, found by walking
// up from the current working directory.
func GetProjectDir(configFilename string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findProjectRootDir(cwd, configFilename)
}

// GetConfig loads, validates and completes the project config.
func GetConfig(configFilename string) (*Config, string, error) {
	config, rootDir, err := GetRawConfig(configFilename)
	if err != nil {
		return nil, "", err
	}
	err = config.ValidateAndComplete(rootDir)
	return config, rootDir, err
}

func GetRawConfig(configFilename string) (*Config, string, error) {
	rootDir, err := GetProjectDir(configFilename)
	if err != nil {
		return nil, "", err
	}
	configPath := path.Join(rootDir, configFilename)

	config, err := loadConfigFromFile(configPath)
	if err != nil {
		return nil, "", err
	}

	return config, rootDir, nil
}

func loadConfigFromFile(file string) (*Config, error) {
	exists, err := files.Exists(file)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Configf("%s does not exist in %s. Are you in the right directory?", filepath.Base(file), filepath.Dir(file))
	}

	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	return FromYAML(contents)
}

// findProjectRootDir walks up the directory tree until it finds the
// directory holding the config file.
func findProjectRootDir(startDir string, configFilename string) (string, error) {
	dir := startDir
	for i := 0; i < maxSearchDepth; i++ {
		exists, err := files.Exists(path.Join(dir, configFilename))
		if err != nil {
			return "", err
		}
		if exists {
			return dir, nil
		}
		if dir == "." || dir == filepath.Dir(dir) {
			return "", errors.Configf("%s not found in %s (or in any parent directories)", configFilename, startDir)
		}
		dir = filepath.Dir(dir)
	}

	return "", errors.Configf("%s not found in any parent directory of %s", configFilename, startDir)
}

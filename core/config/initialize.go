package config

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Initialize creates the configuration directory, writes the default
// configuration if none exists yet and loads the result.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "creating config directory")
	}
	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs is Initialize for the root of fs.
func InitializeFs(fs afero.Fs, logger *log.Logger) (*Configuration, error) {
	exists, err := afero.Exists(fs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	if exists {
		logger.Printf("%s already exists, leaving it alone", ConfigurationName)
	} else {
		logger.Printf("writing %s", ConfigurationName)
		if err := afero.WriteFile(fs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, errors.Wrapf(err, "writing %s", ConfigurationName)
		}
	}

	return LoadFs(fs)
}

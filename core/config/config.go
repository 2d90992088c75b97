package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	HistoryName       = "history"
	ZName             = "z"
	AppLogName        = "app.log"
	EventLogName      = "events.log"
)

type Configuration struct {
	configFs afero.Fs

	Prompt         string `json:"prompt"`
	Color          string `json:"color" validate:"oneof=always auto never"`
	MaxTokens      int    `json:"max_tokens" validate:"gte=1"`
	MaxTokenLength int    `json:"max_token_length" validate:"gte=1"`
	HistoryLimit   int    `json:"history_limit" validate:"gte=0"`
	NullDevice     string `json:"null_device" validate:"required"`

	Aliases map[string]string `json:"aliases" validate:"dive,keys,required,excludesall=/,endkeys,required"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Fs returns the filesystem rooted at the configuration directory.
func (c *Configuration) Fs() afero.Fs {
	if c.configFs == nil {
		c.configFs = afero.NewMemMapFs()
	}
	return c.configFs
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.Fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.Fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// OpenEventLog opens the JSON lines event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.Fs().OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadEventLog() (afero.File, error) {
	return c.Fs().OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// Default returns the built-in configuration backed by fs.
func Default(fs afero.Fs) *Configuration {
	out := defaultConfig()
	out.configFs = fs
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

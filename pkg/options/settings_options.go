package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SettingsOptions)(nil)

const (
	SettingsBackendFile = "file"
	SettingsBackendS3   = "s3"
)

// SettingsOptions select where persisted ground station settings live.
type SettingsOptions struct {
	// Backend is either "file" or "s3".
	Backend string `json:"backend" mapstructure:"backend"`

	// Path is the settings file for the "file" backend. The extension picks the format.
	Path string `json:"path" mapstructure:"path"`

	// Watch reloads the file backend when it changes on disk.
	Watch bool `json:"watch" mapstructure:"watch"`

	// ObjectKey is the object name used by the "s3" backend.
	ObjectKey string `json:"object-key" mapstructure:"object-key"`
}

func NewSettingsOptions() *SettingsOptions {
	return &SettingsOptions{
		Backend:   SettingsBackendFile,
		Path:      "/var/lib/groundlink/settings.yaml",
		Watch:     true,
		ObjectKey: "settings.json",
	}
}

func (o *SettingsOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	switch o.Backend {
	case SettingsBackendFile:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("--settings.path is required for the %q backend", o.Backend))
		}
	case SettingsBackendS3:
		if o.ObjectKey == "" {
			errs = append(errs, fmt.Errorf("--settings.object-key is required for the %q backend", o.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown --settings.backend %q", o.Backend))
	}

	return errs
}

func (o *SettingsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "settings.backend", o.Backend, "Settings backend: 'file' or 's3'.")
	fs.StringVar(&o.Path, "settings.path", o.Path, "Settings file used by the file backend (yaml, json or toml).")
	fs.BoolVar(&o.Watch, "settings.watch", o.Watch, "Reload the settings file when it is edited externally.")
	fs.StringVar(&o.ObjectKey, "settings.object-key", o.ObjectKey, "Object key used by the s3 backend.")
}

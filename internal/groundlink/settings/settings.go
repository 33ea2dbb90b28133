// Package settings persists ground station settings for the vehicle manager.
package settings

import (
	"context"
	"fmt"

	"github.com/autopeer-io/groundlink/internal/vehicle"
	"github.com/autopeer-io/groundlink/pkg/options"
)

// Store is a vehicle.Settings backend with a background task.
type Store interface {
	vehicle.Settings

	// Run performs background work (watching, flushing) until ctx is done.
	Run(ctx context.Context) error

	// OnChange registers fn to run after the backing data changed outside
	// this process. fn runs on the store's goroutine.
	OnChange(fn func())
}

// New builds the store selected by opts.
func New(ctx context.Context, opts *options.SettingsOptions, s3 *options.S3Options) (Store, error) {
	switch opts.Backend {
	case options.SettingsBackendFile:
		return NewFileStore(opts.Path, opts.Watch)
	case options.SettingsBackendS3:
		store, err := NewS3Store(s3, opts.ObjectKey)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", opts.Backend)
	}
}

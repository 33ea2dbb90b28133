package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/autopeer-io/groundlink/pkg/log"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps settings in a yaml, json or toml file. Keys are case
// insensitive.
type FileStore struct {
	mu sync.RWMutex
	v  *viper.Viper

	path     string
	watch    bool
	onChange func()
}

// NewFileStore opens path. A missing file is treated as empty.
func NewFileStore(path string, watch bool) (*FileStore, error) {
	s := &FileStore{path: filepath.Clean(path), watch: watch}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) reload() error {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read settings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Load(key, defaultValue string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.v.IsSet(key) {
		return defaultValue
	}
	return s.v.GetString(key)
}

func (s *FileStore) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := viper.New()
	if err := w.MergeConfigMap(s.v.AllSettings()); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	w.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := w.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}

	s.v = w
	return nil
}

func (s *FileStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Run watches the settings file when watching is enabled. The directory is
// watched rather than the file so editors that replace the file are seen.
func (s *FileStore) Run(ctx context.Context) error {
	if !s.watch {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info("Watching settings file", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handle(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Settings watcher error", "err", err)
		}
	}
}

func (s *FileStore) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if err := s.reload(); err != nil {
		log.Warn("Failed to reload settings", "path", s.path, "err", err)
		return
	}
	log.Debug("Settings file changed", "path", s.path, "op", event.Op.String())

	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

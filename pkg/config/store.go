package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/domain/errors"
)

// Keys persisted in ohos_config.json, in the order they are written.
var Keys = []string{"root_path", "board", "kernel", "product", "product_path", "device_path"}

// Store reads and updates <root>/ohos_config.json.
type Store struct {
	path string
}

// NewStore returns the store for the config file inside root.
func NewStore(root string) *Store {
	return &Store{path: filepath.Join(root, FileName)}
}

// Path is the config file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted config. A missing file yields a config holding
// only the root path.
func (s *Store) Load() (Config, error) {
	values, err := s.read()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		RootPath:    values["root_path"],
		Board:       values["board"],
		Kernel:      values["kernel"],
		Product:     values["product"],
		ProductPath: values["product_path"],
		DevicePath:  values["device_path"],
	}
	if cfg.RootPath == "" {
		cfg.RootPath = filepath.Dir(s.path)
	}
	return cfg, nil
}

// Update sets one key and rewrites the file, creating it from the null
// skeleton first if needed.
func (s *Store) Update(key, value string) error {
	return s.UpdateAll(map[string]string{key: value})
}

// UpdateAll sets several keys in a single write.
func (s *Store) UpdateAll(updates map[string]string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	for k, v := range updates {
		if !isKey(k) {
			return errors.New(errors.CodeInvalidParameter, "config", fmt.Sprintf("unknown config key %q", k), nil)
		}
		values[k] = v
	}
	return s.write(values)
}

func (s *Store) read() (map[string]string, error) {
	values := map[string]string{}
	if !filesystem.IsFile(s.path) {
		return values, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "config", fmt.Sprintf("failed to read %s", s.path), err)
	}
	raw := map[string]*string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("%s is not valid JSON", s.path), err)
	}
	for k, v := range raw {
		if v != nil {
			values[k] = *v
		}
	}
	return values, nil
}

// write stores every known key; unset keys are written as null.
func (s *Store) write(values map[string]string) error {
	out := make(map[string]*string, len(Keys))
	for _, k := range Keys {
		if v, ok := values[k]; ok && v != "" {
			v := v
			out[k] = &v
		} else {
			out[k] = nil
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return errors.New(errors.CodeIoError, "config", fmt.Sprintf("failed to write %s", s.path), err)
	}
	return nil
}

func isKey(k string) bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

var errNoName = errors.New("name is required")

func (s *sample) Validate() error {
	if s.Name == "" {
		return errNoName
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "orbiter")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Level: 7}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "orbiter" || s.Level != 7 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "level: 3\n")

	var s sample
	err := Load(path, &s)
	if !errors.Is(err, errNoName) {
		t.Fatalf("err = %v, want errNoName", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "name: [unterminated\n")

	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	s := sample{Name: "default"}
	if err := LoadOptional(missing, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}

	var empty sample
	if err := LoadOptional(missing, &empty); !errors.Is(err, errNoName) {
		t.Errorf("defaults must still be validated, err = %v", err)
	}
}

package roster

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
)

// File is the on-disk shape of a roster. JSON files parse too.
type File struct {
	Vessels []domain.TrackedVessel `yaml:"vessels"`
}

// Parse decodes a roster document. Entries are returned as written; the
// correlator validates them and reports bad ones in its summary.
func Parse(raw []byte) ([]domain.TrackedVessel, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return file.Vessels, nil
}

// LoadFile reads and parses a roster file.
func LoadFile(path string) ([]domain.TrackedVessel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return Parse(raw)
}

// FileRegistry re-reads the roster on every call so edits apply to the next run.
type FileRegistry struct {
	path   string
	logger *slog.Logger
}

var _ ports.VesselRegistry = (*FileRegistry)(nil)

// NewFileRegistry builds a registry over a roster file.
func NewFileRegistry(path string, logger *slog.Logger) *FileRegistry {
	return &FileRegistry{path: path, logger: logger}
}

// Vessels loads the current roster.
func (r *FileRegistry) Vessels(ctx context.Context) ([]domain.TrackedVessel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vessels, err := LoadFile(r.path)
	if err != nil {
		return nil, err
	}
	r.debug("roster loaded", "path", r.path, "vessels", len(vessels))
	return vessels, nil
}

// Static serves a fixed roster.
type Static []domain.TrackedVessel

var _ ports.VesselRegistry = Static(nil)

// Vessels returns a copy of the roster.
func (s Static) Vessels(context.Context) ([]domain.TrackedVessel, error) {
	out := make([]domain.TrackedVessel, len(s))
	copy(out, s)
	return out, nil
}

func (r *FileRegistry) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Options shape the artifact.
type Options struct {
	Format string
	// LightProvenance keeps only source_url and source_name in each provenance record.
	LightProvenance bool
}

// Validate rejects unknown formats.
func (o Options) Validate() error {
	switch o.Format {
	case "", FormatJSON, FormatJSONL:
		return nil
	default:
		return &domain.ConfigurationError{Setting: "export.format", Reason: fmt.Sprintf("unknown format %q", o.Format)}
	}
}

type document struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	EventCount     int               `json:"event_count"`
	VesselsTracked []string          `json:"vessels_tracked"`
	Events         []json.RawMessage `json:"events"`
}

// Write renders events to w. JSON wraps them in a document with generation
// metadata; JSONL writes one event per line and nothing else.
func Write(w io.Writer, events []domain.TimelineEvent, vessels []string, opts Options, now time.Time) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	encoded := make([]json.RawMessage, 0, len(events))
	for _, event := range events {
		raw, err := encodeEvent(event, opts.LightProvenance)
		if err != nil {
			return err
		}
		encoded = append(encoded, raw)
	}

	if opts.Format == FormatJSONL {
		buf := bufio.NewWriter(w)
		for _, raw := range encoded {
			if _, err := buf.Write(raw); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			if err := buf.WriteByte('\n'); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
		return buf.Flush()
	}

	if vessels == nil {
		vessels = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{
		GeneratedAt:    now.UTC(),
		EventCount:     len(encoded),
		VesselsTracked: vessels,
		Events:         encoded,
	}); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

func encodeEvent(event domain.TimelineEvent, light bool) (json.RawMessage, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	if !light {
		return raw, nil
	}

	var shape map[string]any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("reshape event %s: %w", event.ID, err)
	}
	trimmed := make([]map[string]string, 0, len(event.ProvenanceChain))
	for _, p := range event.ProvenanceChain {
		trimmed = append(trimmed, map[string]string{"source_url": p.SourceURL, "source_name": p.SourceName})
	}
	if sources, ok := shape["sources"].(map[string]any); ok {
		sources["provenance"] = trimmed
	}
	return json.Marshal(shape)
}

// FileExporter writes the artifact to a fixed path, replacing it atomically.
type FileExporter struct {
	path string
	opts Options
	now  func() time.Time
}

var _ ports.EventExporter = (*FileExporter)(nil)

// NewFileExporter validates options up front.
func NewFileExporter(path string, opts Options) (*FileExporter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &FileExporter{path: path, opts: opts, now: time.Now}, nil
}

// Export writes to a temp file in the target directory and renames it into place.
func (e *FileExporter) Export(ctx context.Context, events []domain.TimelineEvent, vessels []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, events, vessels, e.opts, e.now()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.path); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}

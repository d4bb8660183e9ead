// Package export renders harvest results to durable artifacts.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/storage"
	"github.com/extwatch/storecrawl/internal/webstore"
)

// Format selects the artifact encoding.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Extension returns the file suffix for the format.
func (f Format) Extension() string {
	return string(f)
}

// csvHeader lists the exported columns in order.
var csvHeader = []string{
	"id", "name", "display_name", "short_description", "category",
	"icon_link", "downloads", "rating", "rating_count", "website",
	"good_record", "featured", "create_date", "version",
	"host_wide_permissions",
}

// Exporter writes harvest results through a blob store.
type Exporter struct {
	store  storage.BlobStore
	logger *zap.Logger
}

// NewExporter wires the blob store used for artifacts.
func NewExporter(store storage.BlobStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger}
}

// Export encodes the extensions in the requested format and persists them at
// the given path. The returned URI locates the stored artifact.
func (e *Exporter) Export(
	ctx context.Context,
	path string,
	format Format,
	extensions []webstore.Extension,
) (string, error) {
	data, err := Encode(format, extensions)
	if err != nil {
		return "", err
	}
	uri, err := e.store.PutObject(ctx, path, format.ContentType(), data)
	if err != nil {
		return "", fmt.Errorf("persist export: %w", err)
	}
	e.logger.Info("export written",
		zap.String("uri", uri),
		zap.String("format", string(format)),
		zap.Int("extensions", len(extensions)),
		zap.Int("bytes", len(data)))
	return uri, nil
}

// Encode renders the extensions without persisting them.
func Encode(format Format, extensions []webstore.Extension) ([]byte, error) {
	switch format {
	case FormatCSV:
		return encodeCSV(extensions)
	case FormatJSON:
		return encodeJSON(extensions)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// DecodeJSON reads back a JSON artifact produced by Encode, so stored runs
// can be re-encoded into another format.
func DecodeJSON(data []byte) ([]webstore.Extension, error) {
	var extensions []webstore.Extension
	if err := json.Unmarshal(data, &extensions); err != nil {
		return nil, fmt.Errorf("decode json artifact: %w", err)
	}
	return extensions, nil
}

func encodeJSON(extensions []webstore.Extension) ([]byte, error) {
	if extensions == nil {
		extensions = []webstore.Extension{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(extensions); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeCSV(extensions []webstore.Extension) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ext := range extensions {
		if err := w.Write(csvRecord(ext)); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRecord(ext webstore.Extension) []string {
	return []string{
		ext.ID,
		ext.Name,
		ext.DisplayName,
		ext.ShortDescription,
		stringOrEmpty(ext.Category),
		ext.IconLink,
		ext.Downloads.String(),
		floatOrEmpty(ext.Rating),
		intOrEmpty(ext.RatingCount),
		stringOrEmpty(ext.Website),
		strconv.FormatBool(ext.GoodRecord),
		strconv.FormatBool(ext.Featured),
		ext.CreateDate,
		ext.Version,
		strconv.FormatBool(ext.HostWidePermissions),
	}
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intOrEmpty(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

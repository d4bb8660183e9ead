package webstore

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Positional field layout of one raw row. Everything except id and name is
// optional; indices beyond the row's length read as absent.
const (
	posID          = 0
	posIconLink    = 1
	posName        = 2
	posRating      = 3
	posRatingCount = 4
	posShortDesc   = 6
	posWebsite     = 7
	posGoodRecord  = 8
	posFeatured    = 9
	posCategory    = 11
	posDownloads   = 14
	posCreateDate  = 17
	posManifest    = 18
	posDisplayName = 19
)

// unknownValue is the sentinel used when the creation date cannot be parsed.
const unknownValue = "Unknown"

var (
	// ratingPattern accepts an optional leading minus, digits, and at most
	// one decimal point.
	ratingPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Wildcard origins that grant an extension access to every site.
var hostWildcards = []string{"http://*/*", "https://*/*"}

// DecodeRow converts one positional row into an Extension. Every field
// access is total: out-of-range, null, or wrong-typed values read as absent
// and never raise. The row is dropped (ok=false) only when id or name end up
// empty after coercion.
func DecodeRow(row RawRow) (Extension, bool) {
	manifest := decodeManifest(at(row, posManifest))

	ext := Extension{
		ID:               asString(at(row, posID)),
		Name:             asString(at(row, posName)),
		ShortDescription: asString(at(row, posShortDesc)),
		Category:         firstListString(at(row, posCategory)),
		IconLink:         asString(at(row, posIconLink)),

		Downloads:   decodeDownloads(at(row, posDownloads)),
		Rating:      decodeRating(at(row, posRating)),
		RatingCount: decodeRatingCount(at(row, posRatingCount)),

		Website:    optionalString(at(row, posWebsite)),
		GoodRecord: truthy(at(row, posGoodRecord)),
		Featured:   truthy(at(row, posFeatured)),

		CreateDate:          decodeCreateDate(at(row, posCreateDate)),
		Version:             manifestVersion(manifest),
		HostWidePermissions: hostWidePermissions(manifest),
	}
	if len(row) >= posDisplayName+1 {
		ext.DisplayName = asString(at(row, posDisplayName))
	}

	if ext.ID == "" || ext.Name == "" {
		return Extension{}, false
	}
	return ext, true
}

// at reads row[i], treating out-of-range indices as absent.
func at(row RawRow, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func optionalString(v any) *string {
	s := asString(v)
	if s == "" {
		return nil
	}
	return &s
}

// truthy mirrors loose boolean coercion: nil, false, zero, empty string and
// empty list all read as false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func firstListString(v any) *string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	s := asString(list[0])
	if s == "" {
		return nil
	}
	return &s
}

func decodeRating(v any) *float64 {
	s := asString(v)
	if !ratingPattern.MatchString(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	rounded := math.Round(f*100) / 100
	return &rounded
}

func decodeRatingCount(v any) *int64 {
	s := asString(v)
	if !digitsPattern.MatchString(s) {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func decodeDownloads(v any) InstallCount {
	return NewInstallCount(asString(v))
}

// decodeCreateDate interprets the first element of the list at position 17
// as a Unix timestamp in seconds. Any failure yields the Unknown sentinel.
func decodeCreateDate(v any) string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return unknownValue
	}
	var secs float64
	switch ts := list[0].(type) {
	case float64:
		secs = ts
	case string:
		f, err := strconv.ParseFloat(ts, 64)
		if err != nil {
			return unknownValue
		}
		secs = f
	default:
		return unknownValue
	}
	return time.Unix(int64(secs), 0).UTC().Format("2006-01-02")
}

// decodeManifest parses the manifest JSON string at position 18. Invalid or
// absent JSON yields an empty manifest, never an error.
func decodeManifest(v any) map[string]any {
	s, ok := v.(string)
	if !ok || s == "" {
		return map[string]any{}
	}
	var manifest map[string]any
	if err := json.Unmarshal([]byte(s), &manifest); err != nil || manifest == nil {
		return map[string]any{}
	}
	return manifest
}

func manifestVersion(manifest map[string]any) string {
	if v, ok := manifest["version"].(string); ok && v != "" {
		return v
	}
	return unknownValue
}

// hostWidePermissions is true iff the manifest declares a permissions entry
// and a host_permissions list containing a wildcard origin.
func hostWidePermissions(manifest map[string]any) bool {
	if _, ok := manifest["permissions"]; !ok {
		return false
	}
	hosts, ok := manifest["host_permissions"].([]any)
	if !ok {
		return false
	}
	for _, h := range hosts {
		perm, ok := h.(string)
		if !ok {
			continue
		}
		for _, wildcard := range hostWildcards {
			if perm == wildcard {
				return true
			}
		}
	}
	return false
}

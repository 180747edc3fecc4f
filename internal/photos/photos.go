// Package photos owns the single representation of an incident's photo set.
//
// Clients and older rows carry photos in several shapes: a JSON array, a JSON
// encoded string holding an array, a bare data URI, UTF-8 bytes of any of those,
// or nothing at all. List is the canonical form; Decode is the only place that
// turns a stored value back into a List, and FromRequest is the only place that
// accepts one from a client.
package photos

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MaxPhotoBytes is the per-photo ceiling, measured with ApproxSize.
const MaxPhotoBytes = 5 * 1024 * 1024

// ErrInvalidPhotos is returned when the submitted field is neither a sequence nor a string.
var ErrInvalidPhotos = errors.New("photos must be an array of strings")

// OversizeError reports how many photos exceeded MaxPhotoBytes.
type OversizeError struct {
	Count int
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("%d photos exceed the maximum allowed size (5MB)", e.Count)
}

// List is an ordered set of photo payloads (data URIs or inline base64).
// The zero value is an empty set and always serializes as [].
type List []string

// ApproxSize estimates the decoded byte size of a base64 payload as
// characters * 0.75. Callers rely on this exact approximation.
func ApproxSize(photo string) float64 {
	return float64(utf8.RuneCountInString(photo)) * 0.75
}

// FromRequest applies the write-path rules to the raw `photos` field of a
// request body and returns the list to persist.
func FromRequest(raw json.RawMessage) (List, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return List{}, nil
	}

	var list List
	switch raw[0] {
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, ErrInvalidPhotos
		}
		list = clean(items)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, ErrInvalidPhotos
		}
		list = fromSubmittedString(s)
	default:
		return nil, ErrInvalidPhotos
	}

	oversized := 0
	for _, p := range list {
		if ApproxSize(p) > MaxPhotoBytes {
			oversized++
		}
	}
	if oversized > 0 {
		return nil, &OversizeError{Count: oversized}
	}
	return list, nil
}

// Decode converts any stored or legacy representation into a List. It never
// fails: unreadable input degrades to an empty list and is logged.
func Decode(src any) List {
	switch v := src.(type) {
	case nil:
		return List{}
	case List:
		return cleanStrings(v)
	case []string:
		return cleanStrings(v)
	case []any:
		return clean(v)
	case json.RawMessage:
		return fromString(string(v))
	case []byte:
		if !utf8.Valid(v) {
			slog.Warn("discarding photos: stored bytes are not UTF-8", "size", len(v))
			return List{}
		}
		return fromString(string(v))
	case string:
		return fromString(v)
	default:
		slog.Warn("discarding photos: unsupported stored type", "type", fmt.Sprintf("%T", src))
		return List{}
	}
}

// fromString parses s as JSON. A JSON array is used as is, any other JSON value
// becomes a one-element list, and text that is not JSON at all (a bare data
// URI, for instance) is kept whole as a single photo.
func fromString(s string) List {
	if strings.TrimSpace(s) == "" {
		return List{}
	}

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return cleanStrings([]string{s})
	}

	switch p := parsed.(type) {
	case []any:
		return clean(p)
	case nil:
		return List{}
	default:
		return clean([]any{p})
	}
}

// fromSubmittedString is fromString for client input: a string that parses as
// a JSON number, boolean or null is still the client's photo and is kept whole.
func fromSubmittedString(s string) List {
	if strings.TrimSpace(s) == "" {
		return List{}
	}

	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		switch parsed.(type) {
		case []any, string:
			return fromString(s)
		}
	}
	return List{s}
}

func clean(items []any) List {
	out := make(List, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func cleanStrings(items []string) List {
	out := make(List, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Scan implements sql.Scanner so every read of the column goes through Decode.
func (l *List) Scan(src any) error {
	*l = Decode(src)
	return nil
}

// Value implements driver.Valuer; the column always holds a JSON array.
func (l List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MarshalJSON keeps an empty set as [] rather than null.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts every legacy shape, same as Decode.
func (l *List) UnmarshalJSON(data []byte) error {
	*l = Decode(json.RawMessage(data))
	return nil
}

func (List) GormDataType() string {
	return "json"
}

func (List) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	default:
		return "TEXT"
	}
}

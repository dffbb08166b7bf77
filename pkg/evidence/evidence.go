// Package evidence normalizes submitted photos and signatures. Clients send
// either a reference to an already uploaded object or an inline base64
// payload; both are resolved to a single reference string before anything is
// persisted.
package evidence

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"p9e.in/verifyops/utils"
)

// MinInlineBytes rejects obviously truncated inline images. It is a size
// heuristic, not a format check.
const MinInlineBytes = 69

var (
	ErrEmpty   = errors.New("evidence is empty")
	ErrCorrupt = errors.New("evidence is corrupt")
)

// Kind tags the variant held by Evidence.
type Kind int

const (
	KindURL Kind = iota + 1
	KindInline
)

// Evidence is either a reference (URL) or decoded inline bytes.
type Evidence struct {
	Kind Kind
	URL  string
	Data []byte
	MIME string
}

var refPrefixes = []string{"https://", "http://", "gs://", "/uploads/"}

// Parse classifies raw input and decodes inline payloads.
func Parse(raw string) (Evidence, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Evidence{}, ErrEmpty
	}
	for _, p := range refPrefixes {
		if strings.HasPrefix(raw, p) {
			return Evidence{Kind: KindURL, URL: raw}, nil
		}
	}

	mime := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return Evidence{}, fmt.Errorf("%w: malformed data URI", ErrCorrupt)
		}
		header := raw[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return Evidence{}, fmt.Errorf("%w: data URI is not base64 encoded", ErrCorrupt)
		}
		mime = strings.TrimSuffix(header, ";base64")
		payload = raw[comma+1:]
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return Evidence{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(data) < MinInlineBytes {
		return Evidence{}, fmt.Errorf("%w: payload is %d bytes, minimum is %d", ErrCorrupt, len(data), MinInlineBytes)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return Evidence{Kind: KindInline, Data: data, MIME: mime}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Input is one evidence field as clients send it: a bare string, or an object
// carrying the value plus the coordinates the capturing device recorded.
type Input struct {
	Value string
	Lat   interface{}
	Lng   interface{}
}

func (in *Input) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		in.Value = s
		return nil
	}
	var obj struct {
		URL       string      `json:"url"`
		Data      string      `json:"data"`
		Value     string      `json:"value"`
		Lat       interface{} `json:"lat"`
		Latitude  interface{} `json:"latitude"`
		Lng       interface{} `json:"lng"`
		Longitude interface{} `json:"longitude"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("evidence must be a string or an object: %w", err)
	}
	in.Value = firstNonEmpty(obj.URL, obj.Data, obj.Value)
	in.Lat = firstNonNil(obj.Lat, obj.Latitude)
	in.Lng = firstNonNil(obj.Lng, obj.Longitude)
	return nil
}

func (in Input) MarshalJSON() ([]byte, error) {
	if in.Lat == nil && in.Lng == nil {
		return json.Marshal(in.Value)
	}
	return json.Marshal(map[string]interface{}{"value": in.Value, "lat": in.Lat, "lng": in.Lng})
}

// Present reports whether the client sent anything for this field.
func (in *Input) Present() bool {
	return in != nil && strings.TrimSpace(in.Value) != ""
}

// ExtractGPS returns the coordinates the device attached to in, if both are
// numeric and in range.
func ExtractGPS(in *Input) (lat, lng float64, ok bool) {
	if in == nil {
		return 0, 0, false
	}
	lat, latOK := utils.ParseFloat(in.Lat)
	lng, lngOK := utils.ParseFloat(in.Lng)
	if !latOK || !lngOK {
		return 0, 0, false
	}
	if utils.ValidateCoordinate(utils.Coordinate{Lat: lat, Lng: lng}) != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(vals ...interface{}) interface{} {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

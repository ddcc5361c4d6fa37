// Package export renders the full event log as a downloadable document.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/normalization"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var formatNormalizer = normalization.NewNormalizer(map[string]Format{
	"json": FormatJSON,
	"csv":  FormatCSV,
}, FormatJSON)

// ParseFormat resolves a format name. Blank means JSON; anything unknown is a validation error.
func ParseFormat(raw string) (Format, error) {
	f, err := formatNormalizer.NormalizeWithError(raw)
	if err != nil {
		return "", errors.ValidationError("Unsupported export format").
			WithCause(err).
			WithContext("format", raw).
			WithContext("supported", formatNormalizer.ValidKeys()).
			Build()
	}
	return f, nil
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename returns the attachment name for the format.
func (f Format) Filename() string {
	return "webhooks." + string(f)
}

// CSVHeader is the header row of CSV exports.
var CSVHeader = []string{"id", "timestamp", "headers", "body"}

// Encode writes events to w in format f.
func Encode(w io.Writer, f Format, events []eventstore.Event) error {
	switch f {
	case FormatJSON:
		return encodeJSON(w, events)
	case FormatCSV:
		return encodeCSV(w, events)
	default:
		return errors.ValidationError("Unsupported export format").WithContext("format", string(f)).Build()
	}
}

func encodeJSON(w io.Writer, events []eventstore.Event) error {
	if events == nil {
		events = []eventstore.Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode export").Build()
	}
	return nil
}

func encodeCSV(w io.Writer, events []eventstore.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode export").Build()
	}
	for _, e := range events {
		headers, err := json.Marshal(e.Headers)
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode export").Build()
		}
		row := []string{strconv.FormatInt(e.ID, 10), e.Timestamp, string(headers), e.Body}
		if err := cw.Write(row); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode export").Build()
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode export").Build()
	}
	return nil
}

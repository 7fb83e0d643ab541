// Turns raw telemetry lines into events or classified failures
package parser

import (
	"bytes"
	"math"
	"santasleigh/internal/tailer"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

var pool fastjson.ParserPool

// Parses a single record. Never retains the pooled parser's memory.
func Parse(record tailer.RawRecord) (result Result) {
	trimmed := bytes.TrimSpace(record.Line)

	fail := func(reason Reason) Result {
		return Result{Failure: &Failure{
			Reason:  reason,
			Excerpt: excerpt(record.Line),
			Source:  record.End,
		}}
	}

	switch {
	case len(trimmed) == 0:
		return fail(ReasonEmpty)
	case record.Oversized:
		return fail(ReasonOversized)
	case !utf8.Valid(record.Line):
		return fail(ReasonInvalidUTF8)
	}

	p := pool.Get()
	defer pool.Put(p)

	value, err := p.ParseBytes(trimmed)
	if err != nil {
		return fail(ReasonInvalidJSON)
	}
	object, err := value.Object()
	if err != nil {
		return fail(ReasonNotObject)
	}

	event := &Event{
		Timestamp: findTimestamp(value),
		Kind:      findKind(value, object),
		Fields:    make(map[string]string, object.Len()),
		Raw:       record.Line,
		Source:    record.End,
	}

	object.Visit(func(key []byte, field *fastjson.Value) {
		switch field.Type() {
		case fastjson.TypeString:
			event.Fields[string(key)] = string(field.GetStringBytes())
		case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
			event.Fields[string(key)] = field.String()
		}
	})

	result.Event = event
	return
}

// Cut on a rune boundary
func excerpt(line []byte) (text string) {
	if len(line) <= MaxExcerpt {
		return string(line)
	}
	cut := MaxExcerpt
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	text = string(line[:cut])
	return
}

func findKind(value *fastjson.Value, object *fastjson.Object) (kind string) {
	for _, key := range kindKeys {
		field := value.Get(key)
		if field != nil && field.Type() == fastjson.TypeString {
			if text := string(field.GetStringBytes()); text != "" {
				return text
			}
		}
	}

	object.Visit(func(key []byte, field *fastjson.Value) {
		if kind == "" && field.Type() == fastjson.TypeObject {
			kind = string(key)
		}
	})
	if kind == "" {
		kind = unknownKind
	}
	return
}

// Zero time when no key holds a usable value
func findTimestamp(value *fastjson.Value) (timestamp time.Time) {
	for _, key := range timestampKeys {
		field := value.Get(key)
		if field == nil {
			continue
		}

		switch field.Type() {
		case fastjson.TypeString:
			parsed, err := time.Parse(time.RFC3339Nano, string(field.GetStringBytes()))
			if err == nil {
				return parsed.UTC()
			}
		case fastjson.TypeNumber:
			parsed, ok := unixByMagnitude(field.String())
			if ok {
				return parsed
			}
		}
	}
	return
}

// Interprets a unix timestamp as seconds, milliseconds, microseconds or nanoseconds
func unixByMagnitude(number string) (timestamp time.Time, ok bool) {
	if whole, err := strconv.ParseInt(number, 10, 64); err == nil {
		magnitude := whole
		if magnitude < 0 {
			magnitude = -magnitude
		}
		switch {
		case magnitude < 1e11:
			timestamp = time.Unix(whole, 0)
		case magnitude < 1e14:
			timestamp = time.UnixMilli(whole)
		case magnitude < 1e17:
			timestamp = time.UnixMicro(whole)
		default:
			timestamp = time.Unix(0, whole)
		}
		return timestamp.UTC(), true
	}

	fractional, err := strconv.ParseFloat(number, 64)
	if err != nil || math.IsNaN(fractional) || math.IsInf(fractional, 0) || math.Abs(fractional) >= 1e11 {
		return
	}
	sec, frac := math.Modf(fractional)
	timestamp = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	ok = true
	return
}

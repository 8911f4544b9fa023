package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pathbench/internal/domain/model"
)

// record is one decoded input object.
type record map[string]json.RawMessage

var jsonNull = []byte("null") //nolint:gochecknoglobals // literal

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), jsonNull)
}

// lookup returns the first non-null value among names.
func (r record) lookup(names []string) (json.RawMessage, bool) {
	for _, n := range names {
		if v, ok := r[n]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func (r record) get(f field) (json.RawMessage, bool) {
	return r.lookup(aliases[f])
}

func malformed(f field, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrMalformedRecord, aliases[f][0], err)
}

// normalize converts one record into a canonical event.
func normalize(r record) (model.ProbeEvent, error) { //nolint:gocyclo,funlen // one branch per field
	var ev model.ProbeEvent
	var err error

	vendor, err := r.str(fieldVendor)
	if err != nil {
		return ev, err
	}
	if vendor == nil || strings.TrimSpace(*vendor) == "" {
		return ev, fmt.Errorf("%w: missing vendor", ErrMalformedRecord)
	}
	ev.Vendor = strings.TrimSpace(*vendor)

	if id, err := r.str(fieldID); err != nil {
		return ev, err
	} else if id != nil {
		ev.ID = *id
	}
	if ev.Query, err = r.str(fieldQuery); err != nil {
		return ev, err
	}
	if ev.Timestamp, err = r.timestamp(); err != nil {
		return ev, err
	}
	if ev.Concurrency, err = r.integer(fieldConcurrency); err != nil {
		return ev, err
	}
	if errText, err := r.str(fieldError); err != nil {
		return ev, err
	} else if errText != nil {
		ev.Error = *errText
	}
	for _, e := range []struct {
		f   field
		dst **string
	}{
		{fieldSession, &ev.SessionID},
		{fieldIP, &ev.ObservedIP},
		{fieldASN, &ev.ObservedASN},
		{fieldHintGeo, &ev.HintGeo},
		{fieldObservedGeo, &ev.ObservedGeo},
	} {
		if *e.dst, err = r.str(e.f); err != nil {
			return ev, err
		}
	}
	if ev.BytesUp, err = r.int64(fieldBytesUp); err != nil {
		return ev, err
	}
	if ev.BytesDown, err = r.int64(fieldBytesDown); err != nil {
		return ev, err
	}
	if ev.Timings, err = r.timings(); err != nil {
		return ev, err
	}

	topK, topKPresent, err := r.topK()
	if err != nil {
		return ev, err
	}
	ev.TopK = topK

	ok, okPresent, err := r.boolean(fieldOK)
	if err != nil {
		return ev, err
	}
	blocked, _, err := r.boolean(fieldBlocked)
	if err != nil {
		return ev, err
	}
	reason, err := r.str(fieldReason)
	if err != nil {
		return ev, err
	}
	if reason != nil && strings.TrimSpace(*reason) == "" {
		reason = nil
	}
	if !okPresent {
		ok = reason == nil && ev.Error == ""
	}

	ev.Blocked = blocked
	ev.OK = ok && !blocked
	switch {
	case ev.OK && topKPresent && len(topK) == 0:
		ev.OK = false
		ev.FailureReason = model.Ptr(reasonNoResults)
	case ev.OK:
		ev.FailureReason = nil
	case reason != nil:
		ev.FailureReason = reason
	case blocked:
		ev.FailureReason = model.Ptr(reasonBlocked)
	case ev.Error != "":
		ev.FailureReason = model.Ptr(reasonError)
	default:
		ev.FailureReason = model.Ptr(reasonNoResults)
	}
	return ev, nil
}

// str decodes a string. Numbers are kept as their literal text.
func (r record) str(f field) (*string, error) {
	v, ok := r.get(f)
	if !ok {
		return nil, nil
	}
	s, err := decodeString(v)
	if err != nil {
		return nil, malformed(f, err)
	}
	return &s, nil
}

func decodeString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return "", fmt.Errorf("expected a string, got %s", v)
	}
	return n.String(), nil
}

func (r record) boolean(f field) (value, present bool, err error) {
	v, ok := r.get(f)
	if !ok {
		return false, false, nil
	}
	if err := json.Unmarshal(v, &value); err != nil {
		return false, false, malformed(f, err)
	}
	return value, true, nil
}

// number decodes a JSON number or a numeric string.
func number(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", v)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("expected a number: %w", err)
	}
	return f, nil
}

func (r record) integer(f field) (*int, error) {
	v, ok := r.get(f)
	if !ok {
		return nil, nil
	}
	n, err := number(v)
	if err != nil || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return nil, malformed(f, fmt.Errorf("expected an integer, got %s", v))
	}
	return model.Ptr(int(n)), nil
}

func (r record) int64(f field) (*int64, error) {
	v, ok := r.get(f)
	if !ok {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return nil, malformed(f, err)
	}
	return &n, nil
}

// timestamp accepts RFC 3339 text or epoch milliseconds. A missing
// timestamp is the zero time.
func (r record) timestamp() (time.Time, error) {
	v, ok := r.get(fieldTimestamp)
	if !ok {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}, malformed(fieldTimestamp, err)
		}
		return t, nil
	}
	var ms float64
	if err := json.Unmarshal(v, &ms); err != nil {
		return time.Time{}, malformed(fieldTimestamp, err)
	}
	return time.Unix(0, int64(ms*float64(time.Millisecond))).UTC(), nil
}

// topK decodes a list of identifiers given as strings or as objects with a
// url-like key. Entries without an identifier are skipped.
func (r record) topK() (ids []string, present bool, err error) {
	v, ok := r.get(fieldTopK)
	if !ok {
		return nil, false, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, false, malformed(fieldTopK, err)
	}
	ids = make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s != "" {
				ids = append(ids, s)
			}
			continue
		}
		var obj record
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		if raw, ok := obj.lookup(topKKeys); ok {
			if s, err := decodeString(raw); err == nil && s != "" {
				ids = append(ids, s)
			}
		}
	}
	return ids, true, nil
}

// timings reads stages from a nested timings object first, then from the top
// level, and derives the rest from navigation marks.
func (r record) timings() (model.Timings, error) {
	var t model.Timings
	nested := record{}
	if v, ok := r.get(fieldTimings); ok {
		if err := json.Unmarshal(v, &nested); err != nil {
			return t, malformed(fieldTimings, err)
		}
	}

	marks := map[string]float64{}
	rawMarks, ok := nested.get(fieldRaw)
	if !ok {
		rawMarks, ok = r.get(fieldRaw)
	}
	if ok {
		var m record
		if err := json.Unmarshal(rawMarks, &m); err != nil {
			return t, malformed(fieldRaw, err)
		}
		// Navigation entries also carry text such as name and type.
		for k, v := range m {
			var f float64
			if !isNull(v) && json.Unmarshal(v, &f) == nil {
				marks[k] = f
			}
		}
	}

	for _, s := range model.Stages {
		v, ok := nested.lookup(stageAliases[s])
		if !ok {
			v, ok = r.lookup(stageAliases[s])
		}
		if ok {
			d, err := number(v)
			if err != nil {
				return t, fmt.Errorf("%w: timings.%s: %w", ErrMalformedRecord, s, err)
			}
			t.Set(s, &d)
			continue
		}
		t.Set(s, fromMarks(s, marks))
	}
	return t, nil
}

func fromMarks(s model.Stage, marks map[string]float64) *float64 {
	mark := func(name string) *float64 {
		v, ok := marks[name]
		if !ok {
			return nil
		}
		return &v
	}
	if s == model.StageTotal {
		start := mark(markStartTime)
		if start == nil {
			start = mark(markFetchStart)
		}
		return model.Duration(start, mark(markResponseEnd))
	}
	pair, ok := stageMarks[s]
	if !ok {
		return nil
	}
	start := mark(pair[0])
	// A zero secureConnectionStart means no TLS handshake took place.
	if s == model.StageTLS && start != nil && *start == 0 {
		return nil
	}
	return model.Duration(start, mark(pair[1]))
}

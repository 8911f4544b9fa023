package store

import (
	"time"

	"github.com/okian/pathbench/internal/domain/model"
)

// ResultLink is one entry of a batch record's results list.
type ResultLink struct {
	URL string `json:"url"`
}

// BatchRecord is the batch document form of an event.
type BatchRecord struct {
	ID          string        `json:"id,omitempty"`
	Vendor      string        `json:"vendor"`
	Query       *string       `json:"query,omitempty"`
	TS          string        `json:"ts,omitempty"`
	OK          bool          `json:"ok"`
	Blocked     bool          `json:"blocked"`
	BlockType   *string       `json:"blockType,omitempty"`
	Error       string        `json:"error,omitempty"`
	Conc        *int          `json:"conc,omitempty"`
	Timings     model.Timings `json:"timings"`
	Results     []ResultLink  `json:"results,omitempty"`
	SessionID   *string       `json:"sessionId,omitempty"`
	ObservedIP  *string       `json:"observedIp,omitempty"`
	ObservedASN *string       `json:"observedAsn,omitempty"`
	HintGeo     *string       `json:"hintGeo,omitempty"`
	ObservedGeo *string       `json:"observedGeo,omitempty"`
	BytesUp     *int64        `json:"bytesUp,omitempty"`
	BytesDown   *int64        `json:"bytesDown,omitempty"`
}

// StreamRecord is the line form of an event. It uses the short field names
// of the stream format.
type StreamRecord struct {
	ID            string        `json:"id,omitempty"`
	Vendor        string        `json:"vendor"`
	Q             *string       `json:"q,omitempty"`
	Timestamp     string        `json:"timestamp,omitempty"`
	OK            bool          `json:"ok"`
	Blocked       bool          `json:"blocked"`
	FailureReason *string       `json:"failureReason,omitempty"`
	Error         string        `json:"error,omitempty"`
	Concurrency   *int          `json:"concurrency,omitempty"`
	Timings       model.Timings `json:"timings"`
	TopK          []string      `json:"topK,omitempty"`
	SessionID     *string       `json:"session_id,omitempty"`
	ObservedIP    *string       `json:"observed_ip,omitempty"`
	ObservedASN   *string       `json:"asn,omitempty"`
	HintGeo       *string       `json:"hint_geo,omitempty"`
	ObservedGeo   *string       `json:"observed_geo,omitempty"`
	BytesUp       *int64        `json:"bytes_up,omitempty"`
	BytesDown     *int64        `json:"bytes_down,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// NewBatchRecord converts an event to its batch form.
func NewBatchRecord(ev *model.ProbeEvent) BatchRecord {
	r := BatchRecord{
		ID:          ev.ID,
		Vendor:      ev.Vendor,
		Query:       ev.Query,
		TS:          formatTime(ev.Timestamp),
		OK:          ev.OK,
		Blocked:     ev.Blocked,
		BlockType:   ev.FailureReason,
		Error:       ev.Error,
		Conc:        ev.Concurrency,
		Timings:     ev.Timings,
		SessionID:   ev.SessionID,
		ObservedIP:  ev.ObservedIP,
		ObservedASN: ev.ObservedASN,
		HintGeo:     ev.HintGeo,
		ObservedGeo: ev.ObservedGeo,
		BytesUp:     ev.BytesUp,
		BytesDown:   ev.BytesDown,
	}
	for _, id := range ev.TopK {
		r.Results = append(r.Results, ResultLink{URL: id})
	}
	return r
}

// NewStreamRecord converts an event to its line form.
func NewStreamRecord(ev *model.ProbeEvent) StreamRecord {
	return StreamRecord{
		ID:            ev.ID,
		Vendor:        ev.Vendor,
		Q:             ev.Query,
		Timestamp:     formatTime(ev.Timestamp),
		OK:            ev.OK,
		Blocked:       ev.Blocked,
		FailureReason: ev.FailureReason,
		Error:         ev.Error,
		Concurrency:   ev.Concurrency,
		Timings:       ev.Timings,
		TopK:          ev.TopK,
		SessionID:     ev.SessionID,
		ObservedIP:    ev.ObservedIP,
		ObservedASN:   ev.ObservedASN,
		HintGeo:       ev.HintGeo,
		ObservedGeo:   ev.ObservedGeo,
		BytesUp:       ev.BytesUp,
		BytesDown:     ev.BytesDown,
	}
}

package ingest

import "github.com/okian/pathbench/internal/domain/model"

// field is a canonical event field.
type field int

const (
	fieldID field = iota
	fieldVendor
	fieldQuery
	fieldTimestamp
	fieldOK
	fieldBlocked
	fieldReason
	fieldError
	fieldConcurrency
	fieldTopK
	fieldTimings
	fieldRaw
	fieldSession
	fieldIP
	fieldASN
	fieldHintGeo
	fieldObservedGeo
	fieldBytesUp
	fieldBytesDown
)

// aliases maps each canonical field to the names accepted for it, in order
// of preference. Both input formats read records through this table.
var aliases = map[field][]string{ //nolint:gochecknoglobals // shared field mapping
	fieldID:          {"id", "eventId", "event_id"},
	fieldVendor:      {"vendor", "provider"},
	fieldQuery:       {"query", "q"},
	fieldTimestamp:   {"ts", "timestamp", "time"},
	fieldOK:          {"ok", "success"},
	fieldBlocked:     {"blocked"},
	fieldReason:      {"failureReason", "failure_reason", "reason", "blockType"},
	fieldError:       {"error", "err"},
	fieldConcurrency: {"concurrency", "conc"},
	fieldTopK:        {"topK", "topk", "top10", "results"},
	fieldTimings:     {"timings", "timing"},
	fieldRaw:         {"raw", "navigation"},
	fieldSession:     {"sessionId", "session_id", "session"},
	fieldIP:          {"observedIp", "observed_ip", "ip"},
	fieldASN:         {"observedAsn", "observed_asn", "asn"},
	fieldHintGeo:     {"hintGeo", "hint_geo", "geoHint"},
	fieldObservedGeo: {"observedGeo", "observed_geo", "geo"},
	fieldBytesUp:     {"bytesUp", "bytes_up"},
	fieldBytesDown:   {"bytesDown", "bytes_down"},
}

// stageAliases maps each stage to its accepted names, inside a timings
// object or at the top level of a record.
var stageAliases = map[model.Stage][]string{ //nolint:gochecknoglobals // shared field mapping
	model.StageDNS:             {"dns"},
	model.StageConnect:         {"connect"},
	model.StageTLS:             {"tls", "ssl"},
	model.StageTTFB:            {"ttfb"},
	model.StageContentDownload: {"contentDownload", "content_download", "download"},
	model.StageTotal:           {"total", "latency", "duration"},
}

// Navigation timing marks.
const (
	markStartTime         = "startTime"
	markFetchStart        = "fetchStart"
	markDomainLookupStart = "domainLookupStart"
	markDomainLookupEnd   = "domainLookupEnd"
	markConnectStart      = "connectStart"
	markConnectEnd        = "connectEnd"
	markSecureConnStart   = "secureConnectionStart"
	markRequestStart      = "requestStart"
	markResponseStart     = "responseStart"
	markResponseEnd       = "responseEnd"
)

// stageMarks derives a stage from two navigation marks when the stage is not
// given directly.
var stageMarks = map[model.Stage][2]string{ //nolint:gochecknoglobals // shared field mapping
	model.StageDNS:             {markDomainLookupStart, markDomainLookupEnd},
	model.StageConnect:         {markConnectStart, markConnectEnd},
	model.StageTLS:             {markSecureConnStart, markConnectEnd},
	model.StageTTFB:            {markRequestStart, markResponseStart},
	model.StageContentDownload: {markResponseStart, markResponseEnd},
}

// topKKeys are the identifier keys of object-shaped result entries.
var topKKeys = []string{"url", "link", "href", "id"} //nolint:gochecknoglobals // shared field mapping

// Reasons assigned during normalization.
const (
	reasonBlocked   = "blocked"
	reasonNoResults = "no-results"
	reasonError     = "error"
)

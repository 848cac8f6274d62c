// Package feed decodes inbound trade frames.
//
// A frame that is not well-formed JSON fails with ErrMalformedFrame. A
// well-formed frame without a usable id, symbol or price fails with
// ErrDroppedFrame. Callers report the first and discard the second.
package feed

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/rewired-gh/tradestream/internal/models"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrDroppedFrame   = errors.New("dropped frame")
)

// Decode parses one frame into a trade. The returned trade never carries a
// price direction; that is derived later.
func Decode(frame []byte) (models.Trade, error) {
	var t models.Trade

	if !json.Valid(frame) {
		return t, errors.Wrap(ErrMalformedFrame, "invalid JSON")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil || fields == nil {
		return t, errors.Wrap(ErrDroppedFrame, "payload is not an object")
	}

	var ok bool
	if t.ID, ok = stringField(fields, "id"); !ok || t.ID == "" {
		return t, errors.Wrap(ErrDroppedFrame, "missing id")
	}
	if t.Symbol, ok = stringField(fields, "symbol"); !ok || t.Symbol == "" {
		return t, errors.Wrapf(ErrDroppedFrame, "trade %s: missing symbol", t.ID)
	}
	if t.Price, ok = numberField(fields, "price"); !ok {
		return t, errors.Wrapf(ErrDroppedFrame, "trade %s: missing numeric price", t.ID)
	}

	if ts, ok := numberField(fields, "timestamp"); ok {
		t.Timestamp = int64(ts)
	}
	t.Size, _ = numberField(fields, "size")
	side, _ := stringField(fields, "side")
	t.Side = models.Side(side)
	t.Exchange, _ = stringField(fields, "exchange")

	if err := t.Validate(); err != nil {
		return t, errors.Wrapf(ErrDroppedFrame, "trade %s: %v", t.ID, err)
	}
	return t, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 {
		return 0, false
	}
	// Only bare JSON numbers; quoted numbers and null do not count.
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(bytes.TrimSpace(raw), &f); err != nil {
		return 0, false
	}
	return f, true
}

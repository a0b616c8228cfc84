package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// MaxLimit caps the page size for every paginated endpoint.
const MaxLimit = 100

// Cursor is the composite (sort-key, id) position of the last row of a page.
// OrderKey holds the value of the active sort column for that row; ID is the
// row id used as the final tie-break key.
type Cursor struct {
	OrderKey any    `json:"order_key"`
	ID       string `json:"id"`
}

// keyTypeTime marks a cursor whose sort key is a timestamp, so Decode can
// restore it without guessing from the string shape. A string key that merely
// looks like a timestamp stays a string.
const keyTypeTime = "time"

type cursorWire struct {
	OrderKey any    `json:"order_key"`
	KeyType  string `json:"key_type,omitempty"`
	ID       string `json:"id"`
}

// Encode serializes the cursor to an opaque URL-safe token.
func (c Cursor) Encode() (string, error) {
	w := cursorWire{OrderKey: c.OrderKey, ID: c.ID}
	if _, ok := c.OrderKey.(time.Time); ok {
		w.KeyType = keyTypeTime
	}

	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses an opaque cursor token produced by Encode. Timestamp sort
// keys are restored to time.Time so they compare correctly against
// timestamp columns.
func Decode(token string) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	var w cursorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal cursor: %w", err)
	}

	c := &Cursor{OrderKey: w.OrderKey, ID: w.ID}
	if w.KeyType == keyTypeTime {
		s, ok := w.OrderKey.(string)
		if !ok {
			return nil, fmt.Errorf("cursor timestamp key is %T, not a string", w.OrderKey)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("parse cursor timestamp: %w", err)
		}
		c.OrderKey = ts
	}

	return c, nil
}

// Params holds cursor pagination parameters extracted from a request.
type Params struct {
	Limit  int
	Cursor *Cursor
}

// FromRequest extracts limit and cursor query parameters. A missing or
// out-of-range limit falls back to defaultLimit; limits above MaxLimit are
// clamped. A malformed cursor is an error, not a silent default.
func FromRequest(r *http.Request, defaultLimit int) (Params, error) {
	p := Params{Limit: defaultLimit}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if token := r.URL.Query().Get("cursor"); token != "" {
		c, err := Decode(token)
		if err != nil {
			return Params{}, err
		}
		p.Cursor = c
	}

	return p, nil
}

package crypto

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Envelope is the at-rest form of an encrypted field. All parts are hex.
type Envelope struct {
	IV      string `json:"iv" bson:"iv"`
	Data    string `json:"data" bson:"data"`
	AuthTag string `json:"authTag" bson:"authTag"`
}

func (e Envelope) IsZero() bool {
	return e.IV == "" && e.Data == "" && e.AuthTag == ""
}

// Value stores the envelope as JSON text; a zero envelope is NULL.
func (e Envelope) Value() (driver.Value, error) {
	if e.IsZero() {
		return nil, nil
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan accepts an envelope object or a JSON string wrapping one. Anything
// else leaves a zero envelope so the row still loads and the field decrypts
// to its empty value.
func (e *Envelope) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = Envelope{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("envelope: unsupported scan type %T", src)
	}

	*e = Envelope{}
	env, ok := parseEnvelope(bytes.TrimSpace(raw))
	if !ok {
		zap.L().Warn("unreadable envelope column, using empty value", zap.Int("bytes", len(raw)))
		return nil
	}
	*e = env
	return nil
}

func parseEnvelope(raw []byte) (Envelope, bool) {
	if len(raw) == 0 {
		return Envelope{}, true
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Envelope{}, false
		}
		raw = bytes.TrimSpace([]byte(inner))
		if len(raw) == 0 {
			return Envelope{}, true
		}
	}
	if raw[0] != '{' {
		return Envelope{}, false
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}

// String returns the JSON text form, used where envelopes live in plain
// text columns.
func (e Envelope) String() string {
	if e.IsZero() {
		return ""
	}
	raw, _ := json.Marshal(e)
	return string(raw)
}

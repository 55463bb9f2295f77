package model

import (
	"bytes"
	"fmt"
	"time"
)

// Timestamp はバックエンドが返す日時。
// タイムゾーン無しの値（"2026-02-16T08:00:00.123456"）はUTCとして解釈する。
type Timestamp struct {
	time.Time
}

// timestampLayouts は受け付ける日時形式。先頭から順に試す。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON はRFC3339とタイムゾーン無しの形式の両方を受け付ける。nullはゼロ値になる。
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid timestamp: %s", b)
	}
	s := string(b[1 : len(b)-1])
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp: %q", s)
}

// MarshalJSON はRFC3339Nano形式で出力する。ゼロ値はnull。
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

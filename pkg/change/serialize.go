package change

import (
	"encoding/json"
	"fmt"
)

// Envelope は変更イベントのバッチをHTTPで送受信する際のJSON構造。
type Envelope struct {
	// Events は配信順のイベント列。
	Events Batch `json:"events"`
}

// Encode はバッチをEnvelope形式のJSONにシリアライズする。
func Encode(b Batch) ([]byte, error) {
	if b == nil {
		b = Batch{}
	}
	data, err := json.Marshal(Envelope{Events: b})
	if err != nil {
		return nil, fmt.Errorf("変更イベントのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// Decode はEnvelope形式のJSONをバッチにデシリアライズする。
// 未知のKindを含む場合はエラーを返す。
func Decode(data []byte) (Batch, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("変更イベントのデシリアライズに失敗: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env.Events, nil
}

// Validate はすべてのイベントのKindが既知の種類であるかを検査する。
func (e Envelope) Validate() error {
	for i, ev := range e.Events {
		if !ev.Kind.Valid() {
			return fmt.Errorf("変更イベント[%d]の種類が不正です: %q", i, ev.Kind)
		}
	}
	return nil
}

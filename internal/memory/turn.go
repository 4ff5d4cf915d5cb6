// Package memory keeps conversation history per scope: a durable,
// size-bounded log of turns that survives restarts, and an in-process
// rolling window per (author, scope) used for fast context building.
package memory

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the local-clock format of Turn.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Turn is one exchange: what a user said, optional reference material
// fetched for it, and what the bot answered. Turns are never modified
// after they are written.
type Turn struct {
	Author    string `json:"author"`
	Input     string `json:"input"`
	Reference string `json:"reference,omitempty"`
	Reply     string `json:"reply"`
	Timestamp string `json:"timestamp"`
}

// NewTurn builds a Turn stamped with now in local time.
func NewTurn(author, input, reference, reply string, now time.Time) Turn {
	return Turn{
		Author:    author,
		Input:     input,
		Reference: reference,
		Reply:     reply,
		Timestamp: now.Local().Format(TimestampLayout),
	}
}

// legacyTurn is the record shape written by the first version of the
// bot, which used Chinese field names.
type legacyTurn struct {
	Author    string `json:"使用者"`
	Input     string `json:"使用者輸入"`
	Reference string `json:"參考資料"`
	Reply     string `json:"機器人回覆"`
	Timestamp string `json:"時間"`
}

// UnmarshalJSON accepts both the current and the legacy field names so
// logs written before the rename keep working.
func (t *Turn) UnmarshalJSON(data []byte) error {
	type plain Turn
	var cur plain
	if err := json.Unmarshal(data, &cur); err != nil {
		return err
	}
	if cur != (plain{}) {
		*t = Turn(cur)
		return nil
	}

	var old legacyTurn
	if err := json.Unmarshal(data, &old); err != nil {
		return err
	}
	*t = Turn(old)
	return nil
}

package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BatchStartedMsg is sent once the batch has selected its items
type BatchStartedMsg struct {
	BatchID string
	Total   int // number of items that will run
}

// ItemStartedMsg is sent before an item's process is spawned
type ItemStartedMsg struct {
	BatchID string
	ItemID  string
	Index   int // 1-based position within the batch
	Total   int
	Title   string
	URL     string
}

// ItemProgressMsg carries one normalized progress report for an item
type ItemProgressMsg struct {
	ItemID  string
	Phase   string
	Percent float64
}

// BatchProgressMsg carries the aggregate percentage and both status lines
type BatchProgressMsg struct {
	BatchID    string
	Percent    float64
	Status     string // "Downloading item 2 of 4 (Total: 30%)"
	ItemStatus string `json:",omitempty"` // "[2/4] Skam - S01E02: Finalizing"
}

// ItemCompleteMsg signals that an item's file reached the output folder
type ItemCompleteMsg struct {
	ItemID   string
	Title    string
	DestPath string
	Elapsed  time.Duration
}

// ItemCancelledMsg signals that an item was stopped and its partial files swept
type ItemCancelledMsg struct {
	ItemID string
	Title  string
}

// ItemErrorMsg signals that an item failed; the batch continues
type ItemErrorMsg struct {
	ItemID string
	Title  string
	Err    error
}

func (m ItemErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		ItemID string `json:"ItemID"`
		Title  string `json:"Title,omitempty"`
		Err    string `json:"Err,omitempty"`
	}

	out := encoded{
		ItemID: m.ItemID,
		Title:  m.Title,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *ItemErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		ItemID string          `json:"ItemID"`
		Title  string          `json:"Title"`
		Err    json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.ItemID = aux.ItemID
	m.Title = aux.Title
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	// Accept non-string payloads (e.g. {}) from older writers.
	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// BatchDoneMsg is the last event of a batch
type BatchDoneMsg struct {
	BatchID   string
	Completed int
	Failed    int
	Cancelled bool
	Status    string
}

// Envelope is the JSON line form of an event
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TypeName returns the wire name of an event.
func TypeName(msg any) (string, error) {
	switch msg.(type) {
	case BatchStartedMsg:
		return "batch_started", nil
	case ItemStartedMsg:
		return "item_started", nil
	case ItemProgressMsg:
		return "item_progress", nil
	case BatchProgressMsg:
		return "batch_progress", nil
	case ItemCompleteMsg:
		return "item_complete", nil
	case ItemCancelledMsg:
		return "item_cancelled", nil
	case ItemErrorMsg:
		return "item_error", nil
	case BatchDoneMsg:
		return "batch_done", nil
	}
	return "", fmt.Errorf("unknown event type %T", msg)
}

// Encode wraps an event as {"type":..., "data":...}.
func Encode(msg any) ([]byte, error) {
	name, err := TypeName(msg)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: name, Data: data})
}

// Decode reverses Encode.
func Decode(line []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}

	var (
		msg any
		err error
	)
	switch env.Type {
	case "batch_started":
		var m BatchStartedMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "item_started":
		var m ItemStartedMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "item_progress":
		var m ItemProgressMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "batch_progress":
		var m BatchProgressMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "item_complete":
		var m ItemCompleteMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "item_cancelled":
		var m ItemCancelledMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "item_error":
		var m ItemErrorMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	case "batch_done":
		var m BatchDoneMsg
		err = json.Unmarshal(env.Data, &m)
		msg = m
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

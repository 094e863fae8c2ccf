package events

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestMessageTypes_AreDistinct(t *testing.T) {
	messages := []interface{}{
		BatchStartedMsg{BatchID: "b"},
		ItemStartedMsg{ItemID: "started"},
		ItemProgressMsg{ItemID: "progress"},
		BatchProgressMsg{BatchID: "b"},
		ItemCompleteMsg{ItemID: "complete"},
		ItemCancelledMsg{ItemID: "cancelled"},
		ItemErrorMsg{ItemID: "error"},
		BatchDoneMsg{BatchID: "b"},
	}

	typeNames := make(map[string]bool)
	wireNames := make(map[string]bool)
	for _, msg := range messages {
		typeNames[reflect.TypeOf(msg).Name()] = true

		name, err := TypeName(msg)
		if err != nil {
			t.Fatalf("TypeName(%T) failed: %v", msg, err)
		}
		wireNames[name] = true
	}

	if len(typeNames) != len(messages) || len(wireNames) != len(messages) {
		t.Errorf("Expected %d distinct types, got %d Go / %d wire", len(messages), len(typeNames), len(wireNames))
	}
}

func TestItemErrorMsg_JSONEncodesErrAsString(t *testing.T) {
	msg := ItemErrorMsg{ItemID: "id-1", Title: "Skam", Err: errors.New("output file missing")}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["Err"] != "output file missing" {
		t.Errorf("Err = %v, want string", raw["Err"])
	}

	var back ItemErrorMsg
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Err == nil || back.Err.Error() != "output file missing" {
		t.Errorf("Err lost on decode: %v", back.Err)
	}
}

func TestItemErrorMsg_NilErr(t *testing.T) {
	data, err := json.Marshal(ItemErrorMsg{ItemID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	var back ItemErrorMsg
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Err != nil {
		t.Errorf("Expected nil Err, got %v", back.Err)
	}
}

func TestItemErrorMsg_NonStringErr(t *testing.T) {
	var msg ItemErrorMsg
	if err := json.Unmarshal([]byte(`{"ItemID":"x","Err":{}}`), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Err == nil || msg.Err.Error() != "{}" {
		t.Errorf("Expected raw payload as error, got %v", msg.Err)
	}

	if err := json.Unmarshal([]byte(`{"ItemID":"x","Err":null}`), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Err != nil {
		t.Errorf("null Err should decode to nil, got %v", msg.Err)
	}
}

func TestEncode_Envelope(t *testing.T) {
	line, err := Encode(BatchProgressMsg{BatchID: "b1", Percent: 62.5, Status: "Downloading item 3 of 4 (Total: 62%)"})
	if err != nil {
		t.Fatal(err)
	}

	var env struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(line, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "batch_progress" {
		t.Errorf("type = %q", env.Type)
	}
	if env.Data["Percent"] != 62.5 {
		t.Errorf("Percent = %v", env.Data["Percent"])
	}
}

func TestEncode_UnknownType(t *testing.T) {
	if _, err := Encode(struct{}{}); err == nil {
		t.Error("Expected error for unknown event")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	events := []any{
		BatchStartedMsg{BatchID: "b", Total: 3},
		ItemStartedMsg{BatchID: "b", ItemID: "i", Index: 1, Total: 3, Title: "T", URL: "u"},
		ItemProgressMsg{ItemID: "i", Phase: "Finalizing", Percent: 100},
		ItemCompleteMsg{ItemID: "i", Title: "T", DestPath: "/out/T.mkv", Elapsed: 3 * time.Second},
		ItemCancelledMsg{ItemID: "i", Title: "T"},
		BatchDoneMsg{BatchID: "b", Completed: 2, Failed: 1, Status: "Done (Total: 100%)"},
	}

	for _, want := range events {
		line, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%T): %v", want, err)
		}
		got, err := Decode(line)
		if err != nil {
			t.Fatalf("Decode(%T): %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch: got %#v, want %#v", got, want)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"nope","data":{}}`)); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestItemProgressMsg_ChannelCommunication(t *testing.T) {
	ch := make(chan interface{}, 1)
	ch <- ItemProgressMsg{ItemID: "ch", Phase: "Downloading... (40%)", Percent: 40}

	switch m := (<-ch).(type) {
	case ItemProgressMsg:
		if m.Percent != 40 {
			t.Errorf("Percent = %v", m.Percent)
		}
	default:
		t.Errorf("Unexpected type %T", m)
	}
}

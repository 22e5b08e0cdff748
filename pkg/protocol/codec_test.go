package protocol

import (
	"errors"
	"testing"
)

func TestCodecs_EventPayload(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			codec, err := Lookup(name)
			if err != nil {
				t.Fatal(err)
			}

			in := NewMessage("lv:abc", EventCardClick, map[string]any{"index": 3}).WithRef("7")
			data, err := codec.Encode(in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			out, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if out.Event != EventCardClick || out.Ref != "7" || out.Topic != "lv:abc" {
				t.Errorf("unexpected message %+v", out)
			}

			// Numbers come back as float64 from JSON and as sized ints
			// from msgpack.
			if idx, ok := out.GetPayloadInt("index"); !ok || idx != 3 {
				t.Errorf("expected index 3, got %v (%T)", out.Payload["index"], out.Payload["index"])
			}
		})
	}
}

func TestCodecs_RejectInvalid(t *testing.T) {
	tests := []struct {
		codec Codec
		data  []byte
	}{
		{NewJSONCodec(), []byte(`{malformed`)},
		{NewJSONCodec(), []byte(`{"topic":"x"}`)},
		{NewJSONCodec(), []byte(`[]`)},
		{NewMsgPackCodec(), []byte{0xc1}},
	}

	for _, tt := range tests {
		if _, err := tt.codec.Decode(tt.data); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("%s.Decode(%q): expected ErrInvalidMessage, got %v", tt.codec.Name(), tt.data, err)
		}
	}
}

func TestInt(t *testing.T) {
	payload := map[string]any{
		"f":    float64(640),
		"frac": 1.5,
		"i8":   int8(4),
		"u16":  uint16(1024),
		"str":  "12",
		"i64":  int64(-1),
	}

	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"f", 640, true},
		{"frac", 0, false},
		{"i8", 4, true},
		{"u16", 1024, true},
		{"str", 0, false},
		{"i64", -1, true},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		got, ok := Int(payload, tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Int(%q) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup("")
	if err != nil || c.Name() != "json" {
		t.Errorf("expected json default, got %v, %v", c, err)
	}
	if _, err := Lookup("phoenix"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec, got %v", err)
	}
	if !NewMsgPackCodec().Binary() || NewJSONCodec().Binary() {
		t.Error("unexpected Binary flags")
	}
}

func TestReplies(t *testing.T) {
	ok := OkReply("1", "lv:x", map[string]any{"html": "<p></p>"})
	if ok.Event != EventReply || ok.Ref != "1" || ok.Payload["status"] != StatusOK {
		t.Errorf("unexpected ok reply %+v", ok)
	}

	bad := ErrorReply("2", "lv:x", "boom")
	resp, _ := bad.Payload["response"].(map[string]any)
	if bad.Payload["status"] != StatusError || resp["reason"] != "boom" {
		t.Errorf("unexpected error reply %+v", bad)
	}
}

func FuzzJSONDecode(f *testing.F) {
	f.Add([]byte(`{"ref":"1","topic":"lv:abc","event":"card_click","payload":{"index":0}}`))
	f.Add([]byte(`{"event":"viewport","payload":{"width":375.5}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(``))

	codec := NewJSONCodec()

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.Decode(data)
		if err != nil {
			return
		}
		out, err := codec.Encode(msg)
		if err != nil {
			return
		}
		msg2, err := codec.Decode(out)
		if err != nil {
			t.Fatalf("failed to re-parse serialized message: %v", err)
		}
		if msg.Event != msg2.Event || msg.Ref != msg2.Ref || msg.Topic != msg2.Topic {
			t.Errorf("roundtrip mismatch: %+v != %+v", msg, msg2)
		}
	})
}

package internal

import (
	"bytes"
	"testing"
)

func TestCommandSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"set", Command{Type: CommandTSet, Key: "k", Value: []byte("v")}},
		{"set with deadline", Command{Type: CommandTSetXAt, Key: "k", Arg: 1234567890, Value: []byte("v")}},
		{"conditional insert", Command{Type: CommandTSetIfAbsentAt, Key: "lock", Arg: -1, Value: []byte("1")}},
		{"delete", Command{Type: CommandTDelete, Key: "k"}},
		{"increment", Command{Type: CommandTIncrement, Key: "counter", Arg: -42}},
		{"hash set", Command{Type: CommandTHSet, Key: "h", Field: "f", Value: []byte("v")}},
		{"empty value", Command{Type: CommandTSet, Key: "k"}},
		{"binary payload", Command{Type: CommandTSet, Key: "k\x00", Value: []byte{0x00, 0xff, 0x80}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.cmd.Serialize()
			if len(data) != tt.cmd.SizeBytes() {
				t.Errorf("SizeBytes %d does not match serialized length %d", tt.cmd.SizeBytes(), len(data))
			}

			var decoded Command
			if err := decoded.Deserialize(data); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}

			if decoded.Type != tt.cmd.Type || decoded.Key != tt.cmd.Key ||
				decoded.Field != tt.cmd.Field || decoded.Arg != tt.cmd.Arg {
				t.Errorf("decoded %+v, want %+v", decoded, tt.cmd)
			}
			if !bytes.Equal(decoded.Value, tt.cmd.Value) && len(decoded.Value)+len(tt.cmd.Value) > 0 {
				t.Errorf("decoded value %v, want %v", decoded.Value, tt.cmd.Value)
			}
		})
	}
}

func TestCommandDeserializeRejectsTruncatedData(t *testing.T) {
	cmd := Command{Type: CommandTHSet, Key: "key", Field: "field", Value: []byte("value")}
	data := cmd.Serialize()

	for _, cut := range []int{0, 5, 12, len(data) - len(cmd.Value) - 1} {
		var decoded Command
		if err := decoded.Deserialize(data[:cut]); err == nil {
			t.Errorf("expected error for truncation at %d bytes", cut)
		}
	}
}

func TestFieldListRoundTrip(t *testing.T) {
	fields := []string{"a", "", "field-with-dashes", "bin\x00ary"}

	decoded, err := DecodeFieldList(EncodeFieldList(fields))
	if err != nil {
		t.Fatalf("DecodeFieldList failed: %v", err)
	}
	if len(decoded) != len(fields) {
		t.Fatalf("expected %d fields, got %d", len(fields), len(decoded))
	}
	for i := range fields {
		if decoded[i] != fields[i] {
			t.Errorf("field %d: expected %q, got %q", i, fields[i], decoded[i])
		}
	}

	if _, err := DecodeFieldList([]byte{0, 0}); err == nil {
		t.Error("expected error for truncated field list")
	}
}

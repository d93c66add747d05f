package urkel

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRootHashJSONRoundTrip(t *testing.T) {
	want := RootHash(bytes.Repeat([]byte{0xAB}, 32))
	buf, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	var got RootHash
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %s, want %s", got, want)
	}
}

func TestRootHashStringIsHexPrefixed(t *testing.T) {
	h := RootHash([]byte{0x01, 0x02})
	if h.String() != "0x0102" {
		t.Fatalf("got %q", h.String())
	}
}

func TestKeyJSONRoundTrip(t *testing.T) {
	want := Key(bytes.Repeat([]byte{0x42}, 32))
	buf, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	var got Key
	if err := json.Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %s, want %s", got, want)
	}
}

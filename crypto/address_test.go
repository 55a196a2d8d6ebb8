package crypto

import "testing"

func TestAddressRoundtrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i * 7)
	}
	addr := NewAddress(PayPrefix, raw)
	encoded := addr.String()

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bytes() != raw {
		t.Fatalf("roundtrip mismatch: %x != %x", decoded.Bytes(), raw)
	}
	if decoded.Prefix() != PayPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "pay1", "not-bech32", "pay1qqqq"} {
		if _, err := DecodeAddress(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

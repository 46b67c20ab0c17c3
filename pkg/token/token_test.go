package token

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := Codec{}

	cases := []struct {
		sourceID string
		effectID string
	}{
		{"42", "slow"},
		{"123456/789", "robot"},
		{"chat/1", "autotune"},
	}

	for _, tc := range cases {
		encoded, err := codec.Encode(tc.sourceID, tc.effectID)
		if err != nil {
			t.Fatalf("Encode(%q, %q) error: %v", tc.sourceID, tc.effectID, err)
		}

		sourceID, effectID, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", encoded, err)
		}
		if sourceID != tc.sourceID || effectID != tc.effectID {
			t.Fatalf("Decode(%q) = (%q, %q), want (%q, %q)", encoded, sourceID, effectID, tc.sourceID, tc.effectID)
		}
	}
}

func TestEncodeRejectsInvalidFields(t *testing.T) {
	codec := Codec{}

	cases := []struct {
		sourceID string
		effectID string
	}{
		{"", "slow"},
		{"42", ""},
		{"4:2", "slow"},
		{"42", "sl:ow"},
	}

	for _, tc := range cases {
		if _, err := codec.Encode(tc.sourceID, tc.effectID); !errors.Is(err, ErrInvalidField) {
			t.Fatalf("Encode(%q, %q) error = %v, want ErrInvalidField", tc.sourceID, tc.effectID, err)
		}
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	codec := Codec{}

	for _, input := range []string{"", "noseparator", ":slow", "42:", ":"} {
		if _, _, err := codec.Decode(input); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Decode(%q) error = %v, want ErrMalformedToken", input, err)
		}
	}
}

func TestDecodeSplitsOnFirstDelimiter(t *testing.T) {
	codec := Codec{}

	sourceID, effectID, err := codec.Decode("42:slow:extra")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if sourceID != "42" || effectID != "slow:extra" {
		t.Fatalf("Decode = (%q, %q), want split on first delimiter", sourceID, effectID)
	}
}

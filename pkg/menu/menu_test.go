package menu

import (
	"testing"

	"voicemorph/pkg/effects"
	"voicemorph/pkg/token"
)

func newTestBuilder() *Builder {
	return NewBuilder(effects.NewCatalog(), token.Codec{})
}

func TestBuildWithoutReplyTarget(t *testing.T) {
	entries, err := newTestBuilder().Build(nil)
	if err != nil {
		t.Fatalf("Build(nil) error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Kind != EntryInstruction {
		t.Fatalf("kind = %v, want EntryInstruction", entries[0].Kind)
	}
	if entries[0].Token != "" {
		t.Fatalf("instructional entry must not carry a token, got %q", entries[0].Token)
	}
}

func TestBuildWithNonVoiceTarget(t *testing.T) {
	entries, err := newTestBuilder().Build(&ReplyTarget{MessageID: "10/20", HasVoice: false})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Kind != EntryError {
		t.Fatalf("kind = %v, want EntryError", entries[0].Kind)
	}
	if entries[0].Body != "Пожалуйста, ответьте на голосовое сообщение" {
		t.Fatalf("body = %q", entries[0].Body)
	}
}

func TestBuildWithVoiceTarget(t *testing.T) {
	catalog := effects.NewCatalog()
	codec := token.Codec{}
	builder := NewBuilder(catalog, codec)

	entries, err := builder.Build(&ReplyTarget{MessageID: "10/20", HasVoice: true})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	catalogEffects := catalog.List()
	if len(entries) != len(catalogEffects) {
		t.Fatalf("entries = %d, want %d", len(entries), len(catalogEffects))
	}

	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if entry.Kind != EntryEffect {
			t.Fatalf("entry[%d].Kind = %v, want EntryEffect", i, entry.Kind)
		}
		if entry.Title != catalogEffects[i].DisplayName {
			t.Fatalf("entry[%d].Title = %q, want %q", i, entry.Title, catalogEffects[i].DisplayName)
		}

		if _, dup := seen[entry.Token]; dup {
			t.Fatalf("duplicate token %q", entry.Token)
		}
		seen[entry.Token] = struct{}{}

		sourceID, effectID, err := codec.Decode(entry.Token)
		if err != nil {
			t.Fatalf("decode entry token %q: %v", entry.Token, err)
		}
		if sourceID != "10/20" || effectID != catalogEffects[i].ID {
			t.Fatalf("token %q decodes to (%q, %q), want (%q, %q)", entry.Token, sourceID, effectID, "10/20", catalogEffects[i].ID)
		}
	}
}

func TestBuildRejectsDelimiterInMessageID(t *testing.T) {
	if _, err := newTestBuilder().Build(&ReplyTarget{MessageID: "10:20", HasVoice: true}); err == nil {
		t.Fatal("expected error for message id containing the token delimiter")
	}
}

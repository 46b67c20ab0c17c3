// Package menu turns a reply context into a list of selectable effect entries.
package menu

import (
	"fmt"

	"voicemorph/pkg/effects"
	"voicemorph/pkg/token"
)

// EntryKind classifies one menu entry.
type EntryKind int

const (
	// EntryInstruction tells the user how to invoke the menu.
	EntryInstruction EntryKind = iota
	// EntryError tells the user the reply target is not usable.
	EntryError
	// EntryEffect is one selectable effect bound to a token.
	EntryEffect
)

// ReplyTarget describes the message the menu request replies to.
type ReplyTarget struct {
	MessageID string
	HasVoice  bool
}

// Entry is one row of the effect menu.
type Entry struct {
	Kind     EntryKind
	Title    string
	Body     string
	Token    string
	EffectID string
}

// Builder produces effect menus for voice reply targets.
type Builder struct {
	catalog *effects.Catalog
	codec   token.Codec
}

const (
	instructionTitle = "Как использовать бота"
	instructionBody  = "1. Ответьте на голосовое сообщение\n2. Отправьте команду /effects\n3. Выберите эффект из списка"
	errorTitle       = "Ошибка"
	notVoiceBody     = "Пожалуйста, ответьте на голосовое сообщение"
)

// NewBuilder constructs a menu builder over the given catalog.
func NewBuilder(catalog *effects.Catalog, codec token.Codec) *Builder {
	return &Builder{catalog: catalog, codec: codec}
}

// Build returns the menu for one reply target.
//
// A nil target or a non-voice target yields a single informational entry,
// not an error; a voice target yields one entry per catalog effect in
// catalog order.
func (b *Builder) Build(target *ReplyTarget) ([]Entry, error) {
	if target == nil {
		return []Entry{{Kind: EntryInstruction, Title: instructionTitle, Body: instructionBody}}, nil
	}

	if !target.HasVoice {
		return []Entry{{Kind: EntryError, Title: errorTitle, Body: notVoiceBody}}, nil
	}

	catalogEffects := b.catalog.List()
	entries := make([]Entry, 0, len(catalogEffects))
	for _, effect := range catalogEffects {
		encoded, err := b.codec.Encode(target.MessageID, effect.ID)
		if err != nil {
			return nil, fmt.Errorf("encode token for effect %q: %w", effect.ID, err)
		}

		entries = append(entries, Entry{
			Kind:     EntryEffect,
			Title:    effect.DisplayName,
			Token:    encoded,
			EffectID: effect.ID,
		})
	}

	return entries, nil
}

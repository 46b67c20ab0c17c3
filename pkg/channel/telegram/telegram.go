package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"voicemorph/pkg/config"
	"voicemorph/pkg/dispatch"
	"voicemorph/pkg/engine"
	"voicemorph/pkg/menu"
	"voicemorph/pkg/token"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"

const (
	greetingText   = "Привет! Я бот для обработки голосовых сообщений.\nОтветьте на голосовое сообщение командой /effects и выберите эффект."
	menuPromptText = "Выберите эффект:"
)

// Adapter bridges Telegram updates into interaction events.
type Adapter struct {
	cfg       config.TelegramConfig
	allowFrom map[string]struct{}
	log       *slog.Logger
	index     *voiceIndex
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	botToken := strings.TrimSpace(cfg.Token)
	if botToken == "" {
		return nil, errors.New("channels.telegram.token is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:       cfg,
		allowFrom: allowFromSet(cfg.AllowFrom),
		log:       log.With("component", "channel.telegram"),
		index:     newVoiceIndex(defaultIndexCapacity),
	}, nil
}

// Name returns the channel identifier used in status reporting and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts Telegram long polling and handles each update in its own task.
//
// In-flight tasks are allowed to reach completion after ctx is canceled so
// running transcodes are not hard-killed mid-write.
func (a *Adapter) Run(ctx context.Context, d *dispatch.Dispatcher) error {
	if d == nil {
		return errors.New("dispatcher is required")
	}

	bot, err := telego.NewBot(strings.TrimSpace(a.cfg.Token))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	updates, err := bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			inflight.Add(1)
			go func() {
				defer inflight.Done()
				a.handleUpdate(ctx, bot, d, update)
			}()
		}
	}
}

// handleUpdate classifies one update and routes it to the dispatcher.
func (a *Adapter) handleUpdate(ctx context.Context, bot *telego.Bot, d *dispatch.Dispatcher, update telego.Update) {
	switch {
	case update.Message != nil:
		a.handleMessage(ctx, bot, d, update.Message)
	case update.CallbackQuery != nil:
		a.handleCallback(ctx, bot, d, update.CallbackQuery)
	}
}

func (a *Adapter) handleMessage(ctx context.Context, bot *telego.Bot, d *dispatch.Dispatcher, message *telego.Message) {
	a.indexVoiceContent(message)

	if message.From == nil {
		a.log.Debug("Ignoring message without sender")
		return
	}

	senderID := strconv.FormatInt(message.From.ID, 10)
	if !a.senderAllowed(senderID) {
		a.log.Debug("Ignoring message from unauthorized sender", "sender_id", senderID)
		return
	}

	session := &chatSession{adapter: a, bot: bot, chatID: message.Chat.ID}

	switch {
	case isCommand(message.Text, "start"):
		a.log.Info("Greeting user", "chat_id", message.Chat.ID, "sender_id", senderID)
		if err := session.SendNotice(ctx, greetingText); err != nil {
			a.log.Error("Failed to send greeting", "error", err)
		}

	case isCommand(message.Text, "effects"):
		req := dispatch.MenuRequest{Replied: replyTarget(message.ReplyToMessage)}
		a.log.Info("Menu requested", "chat_id", message.Chat.ID, "sender_id", senderID, "replied", req.Replied != nil)
		if err := d.HandleMenu(ctx, req, session); err != nil {
			a.log.Error("Failed to handle menu request", "error", err)
		}
	}
}

func (a *Adapter) handleCallback(ctx context.Context, bot *telego.Bot, d *dispatch.Dispatcher, query *telego.CallbackQuery) {
	// Acknowledge the tap right away; Telegram keeps the button spinner
	// until the callback is answered.
	if err := bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: query.ID}); err != nil {
		a.log.Debug("Failed to answer callback query", "error", err)
	}

	senderID := strconv.FormatInt(query.From.ID, 10)
	if !a.senderAllowed(senderID) {
		a.log.Debug("Ignoring callback from unauthorized sender", "sender_id", senderID)
		return
	}

	session := &chatSession{adapter: a, bot: bot}
	if chatID, ok := callbackChat(query); ok {
		session.chatID = chatID
		session.chatKnown = true
	}

	a.log.Info("Effect selected", "sender_id", senderID, "token", query.Data)
	if err := d.HandleAction(ctx, dispatch.ActionRequest{Token: query.Data}, session); err != nil {
		a.log.Error("Failed to handle action request", "error", err)
	}
}

// indexVoiceContent remembers voice messages seen in updates so action
// tokens can later be resolved back to their file handles.
func (a *Adapter) indexVoiceContent(message *telego.Message) {
	if message.Voice != nil {
		a.index.put(formatRef(message.Chat.ID, message.MessageID), message.Voice.FileID)
	}
	if reply := message.ReplyToMessage; reply != nil && reply.Voice != nil {
		a.index.put(formatRef(reply.Chat.ID, reply.MessageID), reply.Voice.FileID)
	}
}

// senderAllowed checks whether a sender is permitted by allow_from config.
//
// When no allow list is configured, all senders are accepted.
func (a *Adapter) senderAllowed(senderID string) bool {
	if len(a.allowFrom) == 0 {
		return true
	}

	_, ok := a.allowFrom[strings.TrimSpace(senderID)]
	return ok
}

// replyTarget maps a replied Telegram message to a menu reply target.
func replyTarget(reply *telego.Message) *menu.ReplyTarget {
	if reply == nil {
		return nil
	}

	return &menu.ReplyTarget{
		MessageID: formatRef(reply.Chat.ID, reply.MessageID),
		HasVoice:  reply.Voice != nil,
	}
}

// chatSession delivers dispatcher output for one inbound Telegram event.
type chatSession struct {
	adapter   *Adapter
	bot       *telego.Bot
	chatID    int64
	chatKnown bool
}

func (s *chatSession) ResolveMessage(_ context.Context, sourceID string) (*dispatch.SourceMessage, error) {
	fileID, ok := s.adapter.index.get(sourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrMessageNotFound, sourceID)
	}

	return &dispatch.SourceMessage{
		ID:    sourceID,
		Voice: &voiceSource{bot: s.bot, fileID: fileID},
	}, nil
}

func (s *chatSession) SendMenu(ctx context.Context, entries []menu.Entry) error {
	text, keyboard := renderMenu(entries)

	params := tu.Message(tu.ID(s.chatID), text)
	if keyboard != nil {
		params = params.WithReplyMarkup(keyboard)
	}

	_, err := s.bot.SendMessage(ctx, params)
	return err
}

func (s *chatSession) SendNotice(ctx context.Context, text string) error {
	if !s.chatKnown && s.chatID == 0 {
		s.adapter.log.Warn("Dropping notice, chat unknown", "text", text)
		return nil
	}

	_, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(s.chatID), text))
	return err
}

func (s *chatSession) SendStatus(ctx context.Context, text string) (func(context.Context), error) {
	message, err := s.bot.SendMessage(ctx, tu.Message(tu.ID(s.chatID), text))
	if err != nil {
		return nil, err
	}

	revoke := func(ctx context.Context) {
		err := s.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(s.chatID),
			MessageID: message.MessageID,
		})
		if err != nil {
			s.adapter.log.Debug("Failed to delete status message", "error", err)
		}
	}

	return revoke, nil
}

func (s *chatSession) SendVoice(ctx context.Context, sourceID string, output *engine.Output, caption string) error {
	_, messageID, err := parseRef(sourceID)
	if err != nil {
		return err
	}

	params := &telego.SendVoiceParams{
		ChatID:          tu.ID(s.chatID),
		Voice:           tu.File(output.File()),
		Caption:         caption,
		ReplyParameters: &telego.ReplyParameters{MessageID: messageID},
	}

	_, err = s.bot.SendVoice(ctx, params)
	return err
}

// renderMenu turns menu entries into one message text plus an optional
// inline keyboard with one button per effect.
func renderMenu(entries []menu.Entry) (string, *telego.InlineKeyboardMarkup) {
	if len(entries) == 1 && entries[0].Kind != menu.EntryEffect {
		entry := entries[0]
		if entry.Body != "" {
			return entry.Title + "\n\n" + entry.Body, nil
		}
		return entry.Title, nil
	}

	rows := make([][]telego.InlineKeyboardButton, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(entry.Title).WithCallbackData(entry.Token),
		))
	}

	return menuPromptText, tu.InlineKeyboard(rows...)
}

// voiceSource downloads one Telegram voice file by its file handle.
type voiceSource struct {
	bot    *telego.Bot
	fileID string
}

func (v *voiceSource) Fetch(ctx context.Context, w io.Writer) error {
	file, err := v.bot.GetFile(ctx, &telego.GetFileParams{FileID: v.fileID})
	if err != nil {
		return fmt.Errorf("get file metadata: %w", err)
	}

	data, err := tu.DownloadFile(v.bot.FileDownloadURL(file.FilePath))
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// formatRef encodes one chat-scoped message reference. The "/" separator
// keeps the token codec delimiter free for the effect id.
func formatRef(chatID int64, messageID int) string {
	return strconv.FormatInt(chatID, 10) + "/" + strconv.Itoa(messageID)
}

// parseRef decodes a reference produced by formatRef.
func parseRef(ref string) (chatID int64, messageID int, err error) {
	chatPart, messagePart, found := strings.Cut(ref, "/")
	if !found {
		return 0, 0, fmt.Errorf("malformed message reference %q", ref)
	}

	chatID, err = strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed chat id in reference %q", ref)
	}

	messageID, err = strconv.Atoi(messagePart)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed message id in reference %q", ref)
	}

	return chatID, messageID, nil
}

// callbackChat resolves the chat a callback response should target: the
// token prefix when it parses, otherwise the chat of the message carrying
// the keyboard. The fallback keeps error notices deliverable even for
// tokens the dispatcher later rejects as malformed.
func callbackChat(query *telego.CallbackQuery) (int64, bool) {
	if chatID, ok := chatFromToken(query.Data); ok {
		return chatID, true
	}

	if query.Message != nil {
		if chat := query.Message.GetChat(); chat.ID != 0 {
			return chat.ID, true
		}
	}

	return 0, false
}

// chatFromToken extracts the chat id from a callback token without fully
// decoding it.
func chatFromToken(data string) (int64, bool) {
	ref, _, found := strings.Cut(data, token.Delimiter)
	if !found {
		return 0, false
	}

	chatID, _, err := parseRef(ref)
	if err != nil {
		return 0, false
	}

	return chatID, true
}

// isCommand reports whether text invokes the named bot command, with or
// without a @botname suffix.
func isCommand(text string, name string) bool {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return false
	}

	command := fields[0]
	if !strings.HasPrefix(command, "/") {
		return false
	}

	command = strings.TrimPrefix(command, "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}

	return command == name
}

// allowFromSet normalizes allow_from values into a lookup set.
func allowFromSet(allowFrom []string) map[string]struct{} {
	if len(allowFrom) == 0 {
		return nil
	}

	allowed := make(map[string]struct{}, len(allowFrom))
	for _, value := range allowFrom {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if len(allowed) == 0 {
		return nil
	}

	return allowed
}

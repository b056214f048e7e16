// Package telegram serves the assistant over the Telegram Bot API using
// long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/richinex/swasth/agent"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/storage"
)

// MessageLimit is the longest text Telegram accepts in one message.
const MessageLimit = 4096

const (
	clearedReply       = "Conversation cleared. How can I help you today?"
	notConfiguredReply = "The AI service is not configured right now. Please try again later."
	failureReply       = "Sorry, I couldn't process that right now. Please try again."
	unknownCommand     = "Unknown command. Use /start to begin or /clear to reset our conversation."
	pollTimeoutSecs    = 60
	retryDelay         = 3 * time.Second
)

// Bot is the part of the Bot API the channel uses. *tgbotapi.BotAPI
// satisfies it.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Chatter answers one user message given the prior conversation.
type Chatter interface {
	Chat(ctx context.Context, userMessage string, history []llm.ChatMessage) (string, error)
}

// Connect authorizes a bot token.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

// Options configures a Channel.
type Options struct {
	HistoryLimit int
	Logger       *zap.Logger
}

// Channel relays Telegram chats to the agent. History is kept per chat.
type Channel struct {
	bot          Bot
	chat         Chatter
	history      storage.ConversationStorage
	historyLimit int
	logger       *zap.Logger

	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

// New creates a channel.
func New(bot Bot, chat Chatter, history storage.ConversationStorage, opts Options) *Channel {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = agent.DefaultMaxHistory
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Channel{
		bot:          bot,
		chat:         chat,
		history:      history,
		historyLimit: opts.HistoryLimit,
		logger:       opts.Logger,
		chats:        make(map[int64]*sync.Mutex),
	}
}

// Run polls for updates until ctx is cancelled. Messages of one chat are
// handled in order; different chats are handled concurrently.
func (c *Channel) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	offset := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = pollTimeoutSecs
		updates, err := c.bot.GetUpdates(cfg)
		if err != nil {
			c.logger.Warn("failed to get telegram updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID < offset {
				continue
			}
			offset = update.UpdateID + 1
			if update.Message == nil || update.Message.Chat == nil {
				continue
			}

			msg := update.Message
			lock := c.chatLock(msg.Chat.ID)
			wg.Add(1)
			go func() {
				defer wg.Done()
				lock.Lock()
				defer lock.Unlock()
				if err := c.Handle(ctx, msg); err != nil {
					c.logger.Error("telegram message failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
				}
			}()
		}
	}
}

func (c *Channel) chatLock(chatID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.chats[chatID]
	if !ok {
		m = &sync.Mutex{}
		c.chats[chatID] = m
	}
	return m
}

func sessionID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

// Handle answers one incoming message. The returned error covers sending
// and storage failures; agent failures are answered with an apology.
func (c *Channel) Handle(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	session := sessionID(chatID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			return c.Reply(chatID, agent.Greeting())
		case "clear":
			if err := c.history.Delete(ctx, session); err != nil {
				return err
			}
			return c.Reply(chatID, clearedReply)
		default:
			return c.Reply(chatID, unknownCommand)
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if _, err := c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		c.logger.Debug("typing indicator failed", zap.Error(err))
	}

	history, err := c.history.Load(ctx, session, c.historyLimit)
	if err != nil {
		return err
	}

	reply, err := c.chat.Chat(ctx, text, history)
	if err != nil {
		c.logger.Error("agent failed", zap.Int64("chat_id", chatID), zap.Error(err))
		if errors.Is(err, agent.ErrNotConfigured) {
			return c.Reply(chatID, notConfiguredReply)
		}
		return c.Reply(chatID, failureReply)
	}

	if err := c.history.Append(ctx, session, llm.UserMessage(text), llm.AssistantMessage(reply)); err != nil {
		return err
	}
	return c.Reply(chatID, reply)
}

// Reply sends text, split into as many messages as Telegram needs.
func (c *Channel) Reply(chatID int64, text string) error {
	for i, part := range SplitMessage(text, MessageLimit) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return fmt.Errorf("telegram send failed at part %d: %w", i, err)
		}
	}
	return nil
}

// SplitMessage cuts text into parts of at most limit runes, preferring to
// break after a newline, then after a space, in the second half of a part.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := lastIndex(runes[limit/2:limit], '\n'); i >= 0 {
			cut = limit/2 + i + 1
		} else if i := lastIndex(runes[limit/2:limit], ' '); i >= 0 {
			cut = limit/2 + i + 1
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abelzeko/reservoir-dashboard/internal/cookies"
	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/abelzeko/reservoir-dashboard/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

const (
	startText = "Бот показывает текущую обстановку на водохранилищах. " +
		"Используйте /reservoirs для списка водохранилищ или /help для справки."
	helpText = "Доступные команды:\n" +
		"/start - начало работы\n" +
		"/reservoirs - список водохранилищ\n" +
		"/situation [код] - текущая обстановка на водохранилище\n" +
		"/help - эта справка"
	unknownText = "Не понимаю. Используйте /help для списка команд."
	failureText = "Не удалось получить данные. Попробуйте позже."
)

// Dashboard is the part of the dashboard use case the bot needs
type Dashboard interface {
	Catalog(ctx context.Context) ([]entities.Reservoir, error)
	SituationText(ctx context.Context, slug string) (string, error)
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot       *tgbotapi.BotAPI
	dashboard Dashboard
	prefs     cookies.Store
}

// NewTelegramBot creates a new Telegram bot handler. The last reservoir asked
// for in each chat is remembered in prefs.
func NewTelegramBot(botToken string, dashboard Dashboard, prefs cookies.Store) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:       bot,
		dashboard: dashboard,
		prefs:     prefs,
	}, nil
}

// Start listens for and handles Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	log.Info().Str("account", t.bot.Self.UserName).Msg("Authorized on Telegram account")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Info().Msg("Bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping bot")
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			log.Info().
				Str("user", update.Message.From.UserName).
				Int64("user_id", update.Message.From.ID).
				Str("text", update.Message.Text).
				Msg("Received message")
			t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	var text string
	if message.IsCommand() {
		text = t.reply(ctx, message.Chat.ID, message.Command(), message.CommandArguments())
	} else {
		text = t.reply(ctx, message.Chat.ID, "", message.Text)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	if _, err := t.bot.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat", message.Chat.ID).Msg("Failed to send message")
	}
}

// reply builds the answer to a command, or to plain text when command is empty
func (t *TelegramBot) reply(ctx context.Context, chatID int64, command, args string) string {
	args = strings.TrimSpace(args)
	logger := log.With().Int64("chat", chatID).Str("command", command).Logger()

	switch command {
	case "start":
		return startText
	case "help":
		return helpText
	case "reservoirs":
		return t.reservoirsReply(ctx)
	case "situation":
		return t.situationReply(ctx, chatID, args)
	case "":
		// a bare slug is treated as /situation
		if args != "" && !strings.ContainsAny(args, " \n") {
			if text, err := t.dashboard.SituationText(ctx, args); err == nil {
				t.remember(chatID, args)
				return text
			}
		}
		logger.Debug().Str("text", args).Msg("Received non-command message")
		return unknownText
	default:
		logger.Info().Msg("Received unknown command")
		return "Неизвестная команда. Используйте /help для списка команд."
	}
}

func (t *TelegramBot) reservoirsReply(ctx context.Context) string {
	reservoirs, err := t.dashboard.Catalog(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load reservoirs for bot")
		return failureText
	}

	var b strings.Builder
	b.WriteString("Водохранилища:\n\n")
	for _, r := range reservoirs {
		fmt.Fprintf(&b, "• %s (%s)\n", r.Name, r.Slug)
	}
	b.WriteString("\nИспользуйте /situation [код] для текущей обстановки.")
	return b.String()
}

func (t *TelegramBot) situationReply(ctx context.Context, chatID int64, slug string) string {
	if slug == "" {
		slug = t.remembered(chatID)
	}
	if slug == "" {
		return "Укажите код водохранилища, например: /situation sayano"
	}

	text, err := t.dashboard.SituationText(ctx, slug)
	if errors.Is(err, usecases.ErrUnknownReservoir) {
		return fmt.Sprintf("Водохранилище %q не найдено. Используйте /reservoirs для списка.", slug)
	}
	if err != nil {
		log.Error().Err(err).Str("reservoir", slug).Msg("Failed to load situation for bot")
		return failureText
	}
	t.remember(chatID, slug)
	return text
}

func chatKey(chatID int64) string {
	return "reservoir_" + strconv.FormatInt(chatID, 10)
}

func (t *TelegramBot) remember(chatID int64, slug string) {
	if t.prefs == nil {
		return
	}
	if err := t.prefs.Set(chatKey(chatID), slug); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("Failed to remember reservoir")
	}
}

func (t *TelegramBot) remembered(chatID int64) string {
	if t.prefs == nil {
		return ""
	}
	slug, _ := t.prefs.Get(chatKey(chatID))
	return slug
}

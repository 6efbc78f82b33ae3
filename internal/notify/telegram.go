package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Notifier delivers engine events to a Telegram chat. A nil Notifier is a
// valid no-op, so callers never need to branch on configuration.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// New creates a notifier, or nil when no token is configured.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("failed to send telegram message")
	}
}

// SignalAccepted announces an accepted pattern on a campaign.
func (n *Notifier) SignalAccepted(c *models.Campaign, cand models.PatternCandidate, res *models.ValidationResult) {
	n.send(fmt.Sprintf(
		"✅ %s: %s accepted in phase %s\nConfidence: %.1f (%s)\nEntry: %.4f  Stop: %.4f",
		cand.Symbol, cand.Type, cand.DetectedPhase, res.Confidence, res.Tier,
		c.EntryPrice, c.StopLoss,
	))
}

// CampaignClosed announces a completed or failed campaign.
func (n *Notifier) CampaignClosed(c *models.Campaign) {
	icon := "🏁"
	if c.State == models.CampaignFailed {
		icon = "❌"
	}
	n.send(fmt.Sprintf(
		"%s %s: campaign %s (%s)\nExit: %.4f  R: %.2f",
		icon, c.Symbol, c.State, c.ExitReason, c.ExitPrice, c.RMultiple,
	))
}

// PairBlocked announces a correlated-risk block.
func (n *Notifier) PairBlocked(bp models.BlockedPair) {
	n.send(fmt.Sprintf(
		"⚠️ Correlated risk: %s / %s at %.2f, new entries blocked",
		bp.CampaignA, bp.CampaignB, bp.Correlation,
	))
}

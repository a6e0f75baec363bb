package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shop-chatter/internal/shopapi"
)

func (b *Bot) parseModeValue() string {
	switch strings.ToLower(strings.TrimSpace(b.parseMode)) {
	case "html":
		return tgbotapi.ModeHTML
	case "markdown":
		return tgbotapi.ModeMarkdown
	case "markdownv2":
		return tgbotapi.ModeMarkdownV2
	default:
		return ""
	}
}

func (b *Bot) escapeIfNeeded(s string) string {
	switch mode := b.parseModeValue(); mode {
	case tgbotapi.ModeHTML:
		return html.EscapeString(s)
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return tgbotapi.EscapeText(mode, s)
	default:
		return s
	}
}

func (b *Bot) bold(s string) string {
	switch b.parseModeValue() {
	case tgbotapi.ModeHTML:
		return "<b>" + b.escapeIfNeeded(s) + "</b>"
	case tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return "*" + b.escapeIfNeeded(s) + "*"
	default:
		return s
	}
}

func formatMoney(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func (b *Bot) productCard(p shopapi.Product) string {
	var sb strings.Builder
	sb.WriteString(b.bold(p.Name))
	sb.WriteString("\n")
	meta := formatMoney(p.Price)
	if p.Category != "" {
		meta = p.Category + " · " + meta
	}
	sb.WriteString(b.escapeIfNeeded(meta))
	sb.WriteString("\n")
	if p.Stock > 0 {
		sb.WriteString(b.escapeIfNeeded(fmt.Sprintf("In stock: %d", p.Stock)))
	} else {
		sb.WriteString(b.escapeIfNeeded("Out of stock"))
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		sb.WriteString("\n\n")
		sb.WriteString(b.escapeIfNeeded(d))
	}
	return sb.String()
}

// productKeyboard offers a Buy button only while the product is in stock.
func productKeyboard(p shopapi.Product) (tgbotapi.InlineKeyboardMarkup, bool) {
	if p.Stock <= 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Buy for "+formatMoney(p.Price), buyPrefix+strconv.FormatInt(p.ID, 10)),
		),
	), true
}

func (b *Bot) categoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range b.categories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c, categoryPrefix+c))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("All categories", categoryPrefix+"all")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

package telegram

import (
	"fmt"
	"strconv"

	"github.com/go-telegram/bot/models"
	"github.com/set-night/omegachat/internal/domain"
)

// Callback data prefixes.
const (
	CallbackSwitchSession = "switch_session_"
	CallbackDeleteSession = "delete_session_"
	CallbackSessionsPage  = "sessions_page_"
	CallbackNewSession    = "new_session"
	CallbackSelectModel   = "m_"
	CallbackTemperature   = "temp_"
	CallbackNoop          = "cur"
)

func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// PaginationRow renders prev/next buttons around a page indicator.
func PaginationRow(page, totalPages int, prefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton
	if page > 0 {
		row = append(row, InlineButton("⬅️", prefix+strconv.Itoa(page-1)))
	}
	row = append(row, InlineButton(fmt.Sprintf("%d/%d", page+1, totalPages), CallbackNoop))
	if page < totalPages-1 {
		row = append(row, InlineButton("➡️", prefix+strconv.Itoa(page+1)))
	}
	return row
}

// SessionsKeyboard lists one page of sessions with switch and delete buttons.
func SessionsKeyboard(sessions []domain.SessionSummary, currentID string, page, perPage int) *models.InlineKeyboardMarkup {
	totalPages := max((len(sessions)+perPage-1)/perPage, 1)
	page = min(max(page, 0), totalPages-1)

	var rows [][]models.InlineKeyboardButton
	start := page * perPage
	for _, s := range sessions[start:min(start+perPage, len(sessions))] {
		label := fmt.Sprintf("%s (%d)", s.Name, s.MessageCount)
		if s.ID == currentID {
			label = "✅ " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{
			InlineButton(label, CallbackSwitchSession+s.ID),
			InlineButton("🗑", CallbackDeleteSession+s.ID),
		})
	}
	if totalPages > 1 {
		rows = append(rows, PaginationRow(page, totalPages, CallbackSessionsPage))
	}
	rows = append(rows, []models.InlineKeyboardButton{InlineButton("➕ New session", CallbackNewSession)})
	return InlineKeyboard(rows...)
}

// ModelsKeyboard offers one button per model, marking the current one.
func ModelsKeyboard(available []domain.ModelInfo, current string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(available))
	for _, m := range available {
		label := m.Name
		if m.SupportsThinking {
			label += " 🧠"
		}
		if m.ID == current {
			label = "✅ " + label
		}
		rows = append(rows, []models.InlineKeyboardButton{InlineButton(label, CallbackSelectModel+m.ID)})
	}
	return InlineKeyboard(rows...)
}

// TemperatureKeyboard offers the preset temperatures in rows of three.
func TemperatureKeyboard(options []float64, current float64) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, t := range options {
		label := strconv.FormatFloat(t, 'f', 1, 64)
		if t == current {
			label = "✅ " + label
		}
		row = append(row, InlineButton(label, CallbackTemperature+strconv.FormatFloat(t, 'f', -1, 64)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return InlineKeyboard(rows...)
}

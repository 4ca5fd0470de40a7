package services

import (
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// MaxTitleLength is the number of runes kept from the first user message.
const MaxTitleLength = 50

const titleEllipsis = "..."

// DeriveTitle titles a chat after its first non-blank user message.
func DeriveTitle(msgs []models.Message) string {
	for _, m := range msgs {
		if m.Role != models.RoleUser {
			continue
		}
		t := strings.TrimSpace(m.Content)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTitleLength {
			return string([]rune(t)[:MaxTitleLength]) + titleEllipsis
		}
		return t
	}
	return common.DefaultChatTitle
}

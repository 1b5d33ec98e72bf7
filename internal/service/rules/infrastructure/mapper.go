// internal/service/rules/infrastructure/mapper.go
package infrastructure

import (
	"strconv"
	"strings"

	"dealwire/internal/service/rules/domain"
)

// ToDomainChannel 把数据库模型转换为领域模型。
func ToDomainChannel(m *ChannelModel) *domain.Channel {
	return &domain.Channel{
		ID:                  m.ID,
		UserID:              m.UserID,
		Name:                m.Name,
		Platform:            m.Platform,
		ChatID:              m.ChatID,
		EncryptedCredential: m.EncryptedCredential,
		AffiliateTag:        m.AffiliateTag,
		MaxDealsPerHour:     m.MaxDealsPerHour,
		BestHours:           parseHours(m.BestHours),
		Active:              m.Active,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// ToDomainRule 把数据库模型转换为领域模型。
func ToDomainRule(m *PublishRuleModel) *domain.PublishRule {
	rule := &domain.PublishRule{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		Name:           m.Name,
		Active:         m.Active,
		Mode:           domain.PublishMode(m.Mode),
		MaxRetries:     m.MaxRetries,
		CopyStyle:      m.CopyStyle,
		FilterExpr:     m.FilterExpr,
		TotalPublished: m.TotalPublished,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.LastPublishedAt.Valid {
		t := m.LastPublishedAt.Time
		rule.LastPublishedAt = &t
	}
	return rule
}

func parseHours(raw string) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	hours := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		hours = append(hours, h)
	}
	return hours
}

// internal/service/scheduling/infrastructure/mapper.go
package infrastructure

import (
	"database/sql"
	"time"

	"dealwire/internal/service/scheduling/domain"
)

func toModel(d *domain.ScheduledDeal) *ScheduledDealModel {
	return &ScheduledDealModel{
		ID:                 d.ID,
		ChannelID:          d.ChannelID,
		RuleID:             d.RuleID,
		ASIN:               d.ASIN,
		Title:              d.Title,
		Price:              d.Price,
		OldPrice:           d.OldPrice,
		Discount:           d.Discount,
		Category:           d.Category,
		DealType:           d.DealType,
		Score:              d.Score,
		ScheduledFor:       d.ScheduledFor,
		Status:             string(d.Status),
		Reason:             d.Reason,
		DealEndTime:        toNullTime(d.DealEndTime),
		RetryCount:         d.RetryCount,
		MaxRetries:         d.MaxRetries,
		PublishedAt:        toNullTime(d.PublishedAt),
		CancelledAt:        toNullTime(d.CancelledAt),
		FailedAt:           toNullTime(d.FailedAt),
		CancelReason:       d.CancelReason,
		LastError:          d.LastError,
		ExternalMessageID:  d.ExternalMessageID,
		TrackingIdentifier: d.TrackingIdentifier,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func toDomain(m *ScheduledDealModel) *domain.ScheduledDeal {
	return &domain.ScheduledDeal{
		ID:                 m.ID,
		ChannelID:          m.ChannelID,
		RuleID:             m.RuleID,
		ASIN:               m.ASIN,
		Title:              m.Title,
		Price:              m.Price,
		OldPrice:           m.OldPrice,
		Discount:           m.Discount,
		Category:           m.Category,
		DealType:           m.DealType,
		Score:              m.Score,
		ScheduledFor:       m.ScheduledFor,
		Status:             domain.Status(m.Status),
		Reason:             m.Reason,
		DealEndTime:        fromNullTime(m.DealEndTime),
		RetryCount:         m.RetryCount,
		MaxRetries:         m.MaxRetries,
		PublishedAt:        fromNullTime(m.PublishedAt),
		CancelledAt:        fromNullTime(m.CancelledAt),
		FailedAt:           fromNullTime(m.FailedAt),
		CancelReason:       m.CancelReason,
		LastError:          m.LastError,
		ExternalMessageID:  m.ExternalMessageID,
		TrackingIdentifier: m.TrackingIdentifier,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

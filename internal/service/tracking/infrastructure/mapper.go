// internal/service/tracking/infrastructure/mapper.go
package infrastructure

import (
	"database/sql"
	"time"

	"dealwire/internal/service/tracking/domain"
)

func toModel(r *domain.Record) *TrackingIdentifierModel {
	return &TrackingIdentifierModel{
		ID:            r.ID,
		UserID:        r.UserID,
		Identifier:    r.Identifier,
		Status:        string(r.Status),
		TotalUses:     r.TotalUses,
		LastUsedAt:    toNullTime(r.LastUsedAt),
		LeaseID:       toNullString(r.LeaseID),
		AssignedAt:    toNullTime(r.AssignedAt),
		ExpiresAt:     toNullTime(r.ExpiresAt),
		DealHistoryID: toNullString(r.DealHistoryID),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toDomain(m *TrackingIdentifierModel) *domain.Record {
	return &domain.Record{
		ID:            m.ID,
		UserID:        m.UserID,
		Identifier:    m.Identifier,
		Status:        domain.Status(m.Status),
		TotalUses:     m.TotalUses,
		LastUsedAt:    fromNullTime(m.LastUsedAt),
		LeaseID:       m.LeaseID.String,
		AssignedAt:    fromNullTime(m.AssignedAt),
		ExpiresAt:     fromNullTime(m.ExpiresAt),
		DealHistoryID: m.DealHistoryID.String,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

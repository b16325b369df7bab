package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/comedor/backend/internal/domain/orders"
)

// SourceDocumentModel is one raw document of an order or expense collection.
// Payload holds the document's fields as JSON.
type SourceDocumentModel struct {
	Source    string    `gorm:"column:source;type:varchar(32);primaryKey"`
	DocID     string    `gorm:"column:doc_id;type:varchar(128);primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index"`
}

// TableName returns the table name for GORM
func (SourceDocumentModel) TableName() string {
	return "source_documents"
}

// ToRecord decodes the payload into a record
func (m *SourceDocumentModel) ToRecord() (orders.Record, error) {
	return orders.DecodeRecord(orders.SourceTag(m.Source), m.DocID, []byte(m.Payload))
}

// SourceDocumentModelFromRecord encodes a record's fields as the payload
func SourceDocumentModelFromRecord(r orders.Record, now time.Time) (*SourceDocumentModel, error) {
	payload, err := json.Marshal(r.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", r.Source, r.ID, err)
	}
	return &SourceDocumentModel{
		Source:    string(r.Source),
		DocID:     r.ID,
		Payload:   string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

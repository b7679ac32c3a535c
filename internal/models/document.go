// internal/models/document.go
package models

import "time"

// Document is a row of the postgres-backed document store: one JSON record
// in one user's collection.
type Document struct {
	UserID     string    `gorm:"primaryKey;size:64"`
	Collection string    `gorm:"primaryKey;size:32;index:idx_documents_collection_record,priority:1"`
	RecordID   string    `gorm:"primaryKey;size:64;index:idx_documents_collection_record,priority:2"`
	Data       []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Document) TableName() string {
	return "documents"
}

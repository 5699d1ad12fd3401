package store

import (
	"github.com/votranphi/heartistry-user-api/internal/models"

	"gorm.io/gorm"
)

// AuditStore is append-only: no update or delete exists on purpose.
type AuditStore struct {
	DB *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{DB: db}
}

func (s *AuditStore) Append(entry *models.AuditLog) error {
	return s.DB.Create(entry).Error
}

func (s *AuditStore) ListAll() ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := s.DB.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

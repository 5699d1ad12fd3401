package store

import (
	"errors"

	"github.com/votranphi/heartistry-user-api/internal/models"

	"gorm.io/gorm"
)

// OtpStore keeps at most one live code per username.
type OtpStore struct {
	DB *gorm.DB
}

func NewOtpStore(db *gorm.DB) *OtpStore {
	return &OtpStore{DB: db}
}

func (s *OtpStore) FindByUsername(username string) (*models.Otp, error) {
	var otp models.Otp
	err := s.DB.Where("username = ?", username).First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// CreateOrReplace fills the username's single slot: a missing row is
// inserted, an existing row keeps its id and gets the new code and expiry.
func (s *OtpStore) CreateOrReplace(username, code string, expireTime int64) (*models.Otp, error) {
	existing, err := s.FindByUsername(username)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		otp := &models.Otp{
			Username:   username,
			Otp:        code,
			ExpireTime: expireTime,
		}
		if err := s.DB.Create(otp).Error; err != nil {
			return nil, err
		}
		return otp, nil
	}

	existing.Otp = code
	existing.ExpireTime = expireTime
	if err := s.DB.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete consumes the slot after a successful verification.
func (s *OtpStore) Delete(username string) error {
	return s.DB.Where("username = ?", username).Delete(&models.Otp{}).Error
}

package store

import (
	"errors"

	"github.com/votranphi/heartistry-user-api/internal/models"

	"gorm.io/gorm"
)

// UserStore owns persistence of accounts. Lookups that find nothing
// return (nil, nil) so callers can branch without poking at gorm errors.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{DB: db}
}

func (s *UserStore) findOne(query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.DB.Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByID(id uint) (*models.User, error) {
	return s.findOne("id = ?", id)
}

func (s *UserStore) FindByUsername(username string) (*models.User, error) {
	return s.findOne("username = ?", username)
}

func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	return s.findOne("email = ?", email)
}

func (s *UserStore) FindByPhoneNumber(phone string) (*models.User, error) {
	return s.findOne("phone_number = ?", phone)
}

func (s *UserStore) Create(user *models.User) error {
	return s.DB.Create(user).Error
}

func (s *UserStore) Save(user *models.User) error {
	return s.DB.Save(user).Error
}

func (s *UserStore) Delete(id uint) error {
	return s.DB.Delete(&models.User{}, id).Error
}

// All returns every account, id ascending.
func (s *UserStore) All() ([]models.User, error) {
	var users []models.User
	if err := s.DB.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Page returns one zero-based page of accounts, id ascending, plus the
// total number of accounts.
func (s *UserStore) Page(page, pageSize int) ([]models.User, int64, error) {
	var total int64
	if err := s.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := s.DB.Order("id ASC").
		Limit(pageSize).
		Offset(page * pageSize).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

package models

import "time"

// Gender values accepted on signup.
const (
	GenderMale        = "male"
	GenderFemale      = "female"
	GenderUnspecified = "unspecified"
)

// Role values. New accounts default to RoleUser.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application account.
// username / email / phone_number are globally unique.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Fullname    string    `gorm:"size:30;not null" json:"fullname"`
	Username    string    `gorm:"size:15;uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"size:40;uniqueIndex;not null" json:"email"`
	PhoneNumber string    `gorm:"size:12;uniqueIndex;not null" json:"phoneNumber"`
	Dob         string    `gorm:"size:10" json:"dob"` // YYYY-MM-DD
	Password    string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never serialized
	Gender      string    `gorm:"size:16;not null" json:"gender"`
	Role        string    `gorm:"size:8;default:user;not null" json:"role"`
	AvatarURL   string    `gorm:"size:255" json:"avatarUrl"`
	CreateAt    time.Time `gorm:"autoCreateTime" json:"createAt"`
	UpdateAt    time.Time `gorm:"autoUpdateTime" json:"updateAt"`
}

package models

// Otp holds the single verification code slot for a username.
// Repeated signups overwrite the row instead of inserting a second one.
type Otp struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Username   string `gorm:"size:15;uniqueIndex;not null" json:"username"`
	Otp        string `gorm:"size:6;not null" json:"otp"`
	ExpireTime int64  `gorm:"not null" json:"expireTime"` // epoch seconds
}

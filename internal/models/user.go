package models

import "time"

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex" json:"username"`
	Phone        string `gorm:"uniqueIndex" json:"phone"`
	PasswordHash []byte `json:"-"`

	// Balance is in whole currency units. It is the canonical wallet
	// location; there is no separate wallet table.
	Balance   int64 `json:"balance"`
	IsBlocked bool  `json:"is_blocked"`
	IsAdmin   bool  `json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// internal/models/account.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Account struct {
	BaseModel
	Username     string        `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email        string        `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string        `json:"-" gorm:"size:255;not null"`
	Address      string        `json:"address" gorm:"uniqueIndex;size:66;not null"`
	Role         AccountRole   `json:"role" gorm:"type:varchar(20);default:'user'"`
	Status       AccountStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	LastLoginAt  *time.Time    `json:"last_login_at"`

	// Relationships
	Deposits []Deposit `json:"deposits,omitempty" gorm:"foreignKey:AccountID"`
}

func (a *Account) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hashedPassword)
	return nil
}

func (a *Account) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
}

package model

import (
	"strings"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	gorm.Model
	Email    string   `gorm:"uniqueIndex;not null"`
	Password string   `json:"-" gorm:"not null"`
	Username string   `gorm:"uniqueIndex;not null"`
	Name     string   `json:"name" gorm:"not null"`
	Role     UserRole `json:"role" gorm:"type:varchar(10);default:'user'"`

	// Opsiyonel profil bilgileri
	Avatar     string `json:"avatar"`
	IsVerified bool   `json:"is_verified" gorm:"default:false"`

	// İlişkiler
	Subscription *Subscription `json:"-"`
	Generations  []Generation  `json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"email":       u.Email,
		"username":    u.Username,
		"name":        strings.TrimSpace(u.Name),
		"role":        u.Role,
		"avatar":      u.Avatar,
		"is_verified": u.IsVerified,
	}
}

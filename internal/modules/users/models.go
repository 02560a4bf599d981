package users

import "time"

const (
	RoleClient   = "client"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type User struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	Username     string    `gorm:"type:varchar(64);not null"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `gorm:"type:varchar(255);not null;column:password_hash"`
	Role         string    `gorm:"type:varchar(16);not null;default:client"`
	CreatedAt    time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt    time.Time `gorm:"type:datetime(3);not null"`
}

func (User) TableName() string { return "users" }

// PasswordReset is a single-use reset token, stored by hash so a leaked table
// is useless. used_at marks consumption; rows survive process restarts, which
// is the whole point versus keeping tokens in memory.
type PasswordReset struct {
	ID        string     `gorm:"type:char(36);primaryKey"`
	UserID    string     `gorm:"type:char(36);not null;index:ix_password_resets_user_id"`
	TokenHash []byte     `gorm:"type:binary(32);not null;uniqueIndex:ux_password_resets_token_hash"`
	ExpiresAt time.Time  `gorm:"type:datetime(3);not null"`
	UsedAt    *time.Time `gorm:"type:datetime(3)"`
	CreatedAt time.Time  `gorm:"type:datetime(3);not null"`
}

func (PasswordReset) TableName() string { return "password_resets" }

package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 身份记录，由外部认证服务的标识在首次请求时懒创建
// swagger:model User
type User struct {
	BaseModel
	ExternalAuthID string   `gorm:"size:128;uniqueIndex;not null" json:"external_auth_id"`
	DisplayName    string   `gorm:"size:100" json:"display_name"`
	Email          string   `gorm:"size:100;index" json:"email"`
	Role           UserRole `gorm:"size:20;not null;default:'student';index" json:"role"`
	ClassID        *uint    `gorm:"index" json:"class_id"`
	ProfilePicture string   `gorm:"size:255" json:"profile_picture"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsStaff() bool {
	return u.Role == Teacher || u.Role == Admin
}

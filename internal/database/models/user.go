package models

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null;size:254" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	UserName     string `gorm:"not null;size:100" json:"userName"`
	FirstName    string `gorm:"size:100" json:"firstName"`
	LastName     string `gorm:"size:100" json:"lastName"`
	Phone        string `gorm:"size:32" json:"phone"`
	RoleID       *uint  `gorm:"index" json:"roleId"`
	DepartmentID *uint  `gorm:"index" json:"departmentId"`

	// Relationships
	Role       *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// RoleName returns the name of the preloaded role, or "" when the user has none.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

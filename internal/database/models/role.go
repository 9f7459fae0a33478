package models

// Role names carried in the Authorities claim
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleUser    = "USER"
)

// AllRoles is the static reference data seeded at startup.
var AllRoles = []string{RoleAdmin, RoleManager, RoleUser}

type Role struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;not null;size:50" json:"name"`
	Users []User `gorm:"foreignKey:RoleID" json:"-"`
}

func (Role) TableName() string {
	return "roles"
}

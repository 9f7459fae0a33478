package models

// Department is a node in the organisation tree. A nil ParentID marks a root.
type Department struct {
	Base
	Name     string `gorm:"not null;size:200" json:"name"`
	ParentID *uint  `gorm:"index" json:"parentId"`

	// Relationships
	Parent   *Department  `gorm:"foreignKey:ParentID" json:"-"`
	Children []Department `gorm:"foreignKey:ParentID" json:"-"`
	Users    []User       `gorm:"foreignKey:DepartmentID" json:"-"`
}

func (Department) TableName() string {
	return "departments"
}

// ParentIDOrZero returns the parent id using 0 for root departments.
func (d *Department) ParentIDOrZero() uint {
	if d.ParentID == nil {
		return 0
	}
	return *d.ParentID
}

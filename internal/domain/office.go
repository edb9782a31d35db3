package domain

// Office is an organisational unit that handles reports. External offices
// belong to outside maintenance companies.
type Office struct {
	ID         int64
	Name       string
	IsExternal bool
}

// Category classifies reports and maps them to the offices handling them.
type Category struct {
	ID               int64
	Name             string
	OfficeID         int64
	ExternalOfficeID *int64
}

// CategoryOffice is a category resolved together with its offices.
type CategoryOffice struct {
	Category       Category
	Office         Office
	ExternalOffice *Office
}

// ResponsibleOffice returns the office acting on delegated work: the external
// office when one is mapped, otherwise the internal one.
func (c *CategoryOffice) ResponsibleOffice() Office {
	if c.ExternalOffice != nil {
		return *c.ExternalOffice
	}
	return c.Office
}

// OfficeMembership links a user to an office.
type OfficeMembership struct {
	UserID   int64
	OfficeID int64
	Role     UserRole
}

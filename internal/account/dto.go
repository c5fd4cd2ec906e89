package account

type AssignRoleDTO struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

type RoleDTO struct {
	Name        string   `json:"name" validate:"required,min=2,max=50"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type AccountsResponse struct {
	Accounts []*Account `json:"accounts"`
	Total    int64      `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

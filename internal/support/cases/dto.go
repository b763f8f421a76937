package cases

type CreateCaseRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"required"`
	ApplicationID int64  `json:"application_id" validate:"required,gt=0"`
	CategoryID    int64  `json:"category_id" validate:"required,gt=0"`
	StatusID      int64  `json:"status_id" validate:"required,gt=0"`
	Priority      string `json:"priority" validate:"required,oneof=baja media alta critica"`
	AssigneeID    *int64 `json:"assignee_id,omitempty" validate:"omitempty,gt=0"`
}

type UpdateCaseRequest struct {
	Title         *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description   *string `json:"description,omitempty"`
	ApplicationID *int64  `json:"application_id,omitempty" validate:"omitempty,gt=0"`
	CategoryID    *int64  `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Priority      *string `json:"priority,omitempty" validate:"omitempty,oneof=baja media alta critica"`
	AssigneeID    *int64  `json:"assignee_id,omitempty"`
}

type ListCasesRequest struct {
	StatusID      *int64  `json:"status_id,omitempty"`
	ApplicationID *int64  `json:"application_id,omitempty"`
	AssigneeID    *int64  `json:"assignee_id,omitempty"`
	Search        *string `json:"search,omitempty"`
	Limit         int     `json:"limit" validate:"gte=0,lte=200"`
	Offset        int     `json:"offset" validate:"gte=0"`
}

type ChangeStatusRequest struct {
	StatusID int64 `json:"status_id" validate:"required,gt=0"`
}

type AddProgressRequest struct {
	Body string `json:"body" validate:"required"`
}

package dto

// CreateProjectRequest describes the project creation payload.
type CreateProjectRequest struct {
	Name                string  `json:"name" validate:"required,max=255"`
	Description         *string `json:"description,omitempty"`
	ReferringEmployeeID string  `json:"referring_employee_id" validate:"required"`
}

// UpdateProjectRequest carries optional project mutations.
type UpdateProjectRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description         *string `json:"description,omitempty"`
	ReferringEmployeeID *string `json:"referring_employee_id,omitempty"`
}

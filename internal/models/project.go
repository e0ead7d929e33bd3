package models

import "time"

// Project groups assignments under a referring employee who approves
// paid leave for the assigned users.
type Project struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Description         *string   `db:"description" json:"description,omitempty"`
	ReferringEmployeeID string    `db:"referring_employee_id" json:"referring_employee_id"`
	Archived            bool      `db:"archived" json:"archived"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

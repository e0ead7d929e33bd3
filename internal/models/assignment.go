package models

import "time"

// Assignment links a user to a project over an inclusive date range.
// Ranges for the same user must not overlap.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail joins an assignment with its project's approval chain.
type AssignmentDetail struct {
	Assignment
	ProjectName         string `db:"project_name" json:"project_name"`
	ReferringEmployeeID string `db:"referring_employee_id" json:"referring_employee_id"`
}

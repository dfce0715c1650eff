package model

import "time"

type Account struct {
	ID              string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Role            Role
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Course struct {
	ID        string
	Code      string
	Title     string
	TeacherID string
	CreatedAt time.Time
}

type Assignment struct {
	ID        string
	CourseID  string
	Title     string
	DueAt     time.Time
	PostedBy  string
	CreatedAt time.Time
}

type Enrollment struct {
	CourseID  string
	StudentID string
	Grade     *string
	CreatedAt time.Time
}

// GradeEntry is the student-facing view of an enrollment.
type GradeEntry struct {
	CourseID    string
	CourseCode  string
	CourseTitle string
	Grade       *string
}

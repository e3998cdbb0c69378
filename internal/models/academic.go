package models

import "time"

// Course is a credit bearing course marks are recorded against.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	CreditUnits int       `db:"credit_units" json:"credit_units"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Term groups marks into academic periods ordered by start date.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MarkRecord is the single mark a student holds for a course. GradePoint,
// Letter and Remark are always derived from RawMark.
type MarkRecord struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TermID      string    `db:"term_id" json:"term_id"`
	RawMark     float64   `db:"raw_mark" json:"raw_mark"`
	CreditUnits int       `db:"credit_units" json:"credit_units"`
	GradePoint  float64   `db:"grade_point" json:"grade_point"`
	Letter      string    `db:"letter" json:"letter"`
	Remark      string    `db:"remark" json:"remark"`
	RecordedBy  *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MarkView is a mark joined with its course and term labels.
type MarkView struct {
	MarkRecord
	CourseCode    string    `db:"course_code" json:"course_code"`
	CourseName    string    `db:"course_name" json:"course_name"`
	TermName      string    `db:"term_name" json:"term_name"`
	TermStartDate time.Time `db:"term_start_date" json:"term_start_date"`
}

// GpaRecord is the derived academic standing of one student.
type GpaRecord struct {
	StudentID string    `db:"student_id" json:"student_id"`
	GPA       float64   `db:"gpa" json:"gpa"`
	CGPA      float64   `db:"cgpa" json:"cgpa"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

package dto

// CreateCourseRequest is the POST /courses payload.
type CreateCourseRequest struct {
	Code        string `json:"code" validate:"required,max=20"`
	Name        string `json:"name" validate:"required,max=200"`
	CreditUnits int    `json:"credit_units" validate:"required,gt=0,lte=12"`
}

// CreateTermRequest is the POST /terms payload. Dates are YYYY-MM-DD.
type CreateTermRequest struct {
	Name      string `json:"name" validate:"required,max=80"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// MarkRequest is the POST /marks payload. The mark range is enforced here,
// the grade table itself accepts any value.
type MarkRequest struct {
	StudentID string   `json:"student_id" validate:"required,uuid4"`
	CourseID  string   `json:"course_id" validate:"required,uuid4"`
	TermID    string   `json:"term_id" validate:"required,uuid4"`
	Mark      *float64 `json:"mark" validate:"required,gte=0,lte=100"`
}

// UpdateMarkRequest is the PUT /marks/:id payload.
type UpdateMarkRequest struct {
	Mark   *float64 `json:"mark" validate:"required,gte=0,lte=100"`
	TermID *string  `json:"term_id" validate:"omitempty,uuid4"`
}

// AwardPointsRequest is the POST /points payload. A blank club_id means a
// general award.
type AwardPointsRequest struct {
	StudentID string  `json:"student_id" validate:"required,uuid4"`
	ClubID    *string `json:"club_id" validate:"omitempty,uuid4"`
	Points    int     `json:"points" validate:"required,gt=0,lte=1000"`
	Reason    string  `json:"reason" validate:"max=500"`
}

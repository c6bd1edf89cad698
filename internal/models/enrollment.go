package models

import "time"

// Enrollment links a user to a course they have taken.
type Enrollment struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrolledCourse is a course as seen through one of the user's enrollments.
type EnrolledCourse struct {
	Course
	EnrollmentID int64     `db:"enrollment_id" json:"enrollment_id"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentResult reports the outcome of an enroll or drop request.
type EnrollmentResult struct {
	CourseID int64 `json:"course_id"`
	Changed  bool  `json:"changed"`
}

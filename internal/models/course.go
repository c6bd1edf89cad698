package models

// Course is an immutable catalog entry.
type Course struct {
	ID          int64  `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Price       string `db:"price" json:"price"`
	Duration    string `db:"duration" json:"duration"`
	Level       string `db:"level" json:"level"`
	Instructor  string `db:"instructor" json:"instructor"`
}

// CourseFilter captures the catalog search criteria. An empty Search
// selects the whole catalog.
type CourseFilter struct {
	Search string
}

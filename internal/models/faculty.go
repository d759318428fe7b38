package models

// Faculty is a top-level academic division.
type Faculty struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Department belongs to exactly one faculty.
type Department struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	FacultyID   string  `db:"faculty_id" json:"-"`
	FacultyName *string `db:"faculty_name" json:"-"`
}

// DepartmentDetail is the response shape embedding the parent faculty.
type DepartmentDetail struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Faculty Faculty `json:"faculty"`
}

// Detail converts a joined department row into its response shape.
func (d Department) Detail() DepartmentDetail {
	name := ""
	if d.FacultyName != nil {
		name = *d.FacultyName
	}
	return DepartmentDetail{
		ID:      d.ID,
		Name:    d.Name,
		Faculty: Faculty{ID: d.FacultyID, Name: name},
	}
}

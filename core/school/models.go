package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classpath/backend/core"
)

type Institution struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type Program struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	ModifiedAt    time.Time `json:"modified_at"`
}

type Class struct {
	ID          string    `json:"id"`
	ProgramID   string    `json:"program"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type Course struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	ProgramID   string    `json:"program"`
	TeacherID   string    `json:"teacher"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

type NewInstitution struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (ni *NewInstitution) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	return validate.Struct(ni)
}

type UpdateInstitution struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (ui *UpdateInstitution) Validate(validate *validator.Validate) error {
	ui.Name = core.CleanString(ui.Name)
	return validate.Struct(ui)
}

// NewProgram creates a Program under the calling admin's institution;
// an explicit institution, when provided, must match it.
type NewProgram struct {
	Name          string `json:"name" validate:"required"`
	Description   string `json:"description"`
	InstitutionID string `json:"institution"`
}

func (np *NewProgram) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ProgramID   string `json:"program" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewCourse struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ClassID     string `json:"class_id" validate:"required"`
	ProgramID   string `json:"program" validate:"required"`
	TeacherID   string `json:"teacher" validate:"required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateEntity covers the mutable fields shared by Program, Class and
// Course updates; references are immutable after creation except the
// course's teacher.
type UpdateEntity struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	TeacherID   string  `json:"teacher"`
}

func (ue *UpdateEntity) Validate(validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	return validate.Struct(ue)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// The tables below belong to the people, student and category modules.
// Billing only reads them to expand an installment's enrollment.

// PersonModel maps the people table
type PersonModel struct {
	BaseModel
	FirstName      string `gorm:"type:varchar(100);not null"`
	LastName       string `gorm:"type:varchar(100);not null"`
	DocumentNumber string `gorm:"type:varchar(20);uniqueIndex"`
}

func (PersonModel) TableName() string {
	return "people"
}

// StudentModel maps the students table
type StudentModel struct {
	BaseModel
	PersonID uuid.UUID `gorm:"type:uuid;not null;index"`
}

func (StudentModel) TableName() string {
	return "students"
}

// CategoryModel maps the categories table
type CategoryModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null"`
}

func (CategoryModel) TableName() string {
	return "categories"
}

// StudentCategoryModel maps the student_categories (alumno-categoria) enrollment table
type StudentCategoryModel struct {
	BaseModel
	StudentID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoryID uuid.UUID  `gorm:"type:uuid;not null;index"`
	EnrolledAt *time.Time
}

func (StudentCategoryModel) TableName() string {
	return "student_categories"
}

// EnrollmentDetailRow is the scan target of the enrollment expansion join
type EnrollmentDetailRow struct {
	StudentCategoryID uuid.UUID
	StudentID         uuid.UUID
	PersonID          uuid.UUID
	FirstName         string
	LastName          string
	DocumentNumber    string
	CategoryID        *uuid.UUID
	CategoryName      *string
}

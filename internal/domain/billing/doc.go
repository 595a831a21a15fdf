// Package billing holds the installment (cuota) aggregate of the club's fee billing.
//
// An Installment is one period's fee obligation for a student's enrollment in a
// category (alumno-categoria). The package owns:
//   - the period key (enrollment, year, month) that is unique among non-deleted installments
//   - the payment state machine: PENDING -> PAID, PENDING -> OVERDUE, OVERDUE -> PAID
//   - soft delete and restore with audit stamps
//
// Enrollments, students and people are owned by other modules. They are only
// referenced here by ID and read through EnrollmentReader for listing screens.
package billing

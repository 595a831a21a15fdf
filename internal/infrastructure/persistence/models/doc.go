// Package models contains GORM persistence models mapped to database tables.
// They are kept apart from domain types so the domain stays free of ORM tags;
// each model carries the mappers to and from its domain counterpart.
//
//   - base.go: shared columns (id, timestamps, version)
//   - installment.go: installments (cuotas) with soft delete columns
//   - enrollment.go: read-only views of enrollment, student, person and category tables
//   - audit_log.go: installment audit trail
package models

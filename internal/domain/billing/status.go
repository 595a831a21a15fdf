package billing

// InstallmentState is the payment state of an installment
type InstallmentState string

const (
	StatePending InstallmentState = "PENDING" // Issued, not yet paid
	StatePaid    InstallmentState = "PAID"    // Paid; terminal
	StateOverdue InstallmentState = "OVERDUE" // Past due date without payment
)

// ParseInstallmentState validates a raw state value such as the estado query parameter
func ParseInstallmentState(raw string) (InstallmentState, error) {
	s := InstallmentState(raw)
	if !s.IsValid() {
		return "", ErrInvalidState
	}
	return s, nil
}

// IsValid checks if the state is one of the known values
func (s InstallmentState) IsValid() bool {
	switch s {
	case StatePending, StatePaid, StateOverdue:
		return true
	}
	return false
}

// String returns the string representation of InstallmentState
func (s InstallmentState) String() string {
	return string(s)
}

// IsTerminal returns true when no further transition is allowed
func (s InstallmentState) IsTerminal() bool {
	return s == StatePaid
}

// CanBePaid returns true if markAsPaid may be applied in this state
func (s InstallmentState) CanBePaid() bool {
	return s == StatePending || s == StateOverdue
}

// CanBecomeOverdue returns true if the overdue transition may be applied
func (s InstallmentState) CanBecomeOverdue() bool {
	return s == StatePending
}

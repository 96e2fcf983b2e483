package app

import "strings"

// Operation tracks a CLI command that may mutate the database.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the database).
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "error"
}

// NewOperation creates a new in-memory operation. args are joined into the
// recorded parameters.
func NewOperation(name string, args ...string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: strings.Join(args, " "),
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Record marks the operation failed if err is non-nil and returns err.
func (op *Operation) Record(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

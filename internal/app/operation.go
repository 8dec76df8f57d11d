package app

// AdminOperation tracks a CLI or server command that may mutate the ledger.
// Operations are created in memory with ID=0. Only mutating commands persist
// them (giving them an auto-increment ID from the store).
type AdminOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewAdminOperation creates a new in-memory admin operation.
func NewAdminOperation(operation, parameters string) *AdminOperation {
	return &AdminOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the store.
func (op *AdminOperation) Persisted() bool {
	return op.ID != 0
}

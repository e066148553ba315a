package experience

import "strings"

// Operation is the closed set of changes a producer can propose for the collected experiences.
type Operation uint8

const (
	OperationAdd Operation = iota + 1
	OperationUpdate
	OperationDelete
	OperationNoop
)

var operationNames = map[Operation]string{
	OperationAdd:    "ADD",
	OperationUpdate: "UPDATE",
	OperationDelete: "DELETE",
	OperationNoop:   "NOOP",
}

// ParseOperation normalizes the raw tag and reports whether it names a known operation.
func ParseOperation(raw string) (Operation, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ADD":
		return OperationAdd, true
	case "UPDATE":
		return OperationUpdate, true
	case "DELETE":
		return OperationDelete, true
	case "NOOP":
		return OperationNoop, true
	default:
		return 0, false
	}
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return "INVALID"
}

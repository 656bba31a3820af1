package shared

import "fmt"

// OperationContext identifies which background operation issued an action.
// Ledger entries carry it so transactions can be attributed to the container
// that caused them.
type OperationContext struct {
	ContainerID   string
	OperationType string
}

func NewOperationContext(containerID, operationType string) OperationContext {
	return OperationContext{
		ContainerID:   containerID,
		OperationType: operationType,
	}
}

func (oc OperationContext) IsValid() bool {
	return oc.ContainerID != "" && oc.OperationType != ""
}

func (oc OperationContext) String() string {
	return fmt.Sprintf("%s[%s]", oc.OperationType, oc.ContainerID)
}

// NormalizedOperationType folds worker and workflow variants into their base
// operation name for reporting.
func (oc OperationContext) NormalizedOperationType() string {
	switch oc.OperationType {
	case "arbitrage_worker", "arbitrage_coordinator":
		return "arbitrage"
	case "contract_workflow":
		return "contract"
	case "scout_tour", "scout_fleet":
		return "scout"
	case "batch_purchase":
		return "purchase"
	default:
		return oc.OperationType
	}
}

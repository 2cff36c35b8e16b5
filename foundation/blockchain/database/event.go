package database

import "fmt"

// EventKind identifies the meaning of an event.
type EventKind uint16

// Set of event kinds produced by the chain. Kinds at or above Custom are free
// for contracts to use.
const (
	EventUnknown EventKind = iota
	EventChainCreate
	EventTokenMint
	EventTokenBurn
	EventTokenSend
	EventTokenReceive
	EventGasEscrow
	EventGasPayment
	EventInflation
	EventAddressRegister
	EventAddressMigration
	EventOrganizationCreate
	EventOrganizationAdd
	EventOrganizationRemove
	EventValidatorPropose
	EventValidatorElect
	EventValidatorRemove
	EventValidatorSwitch
	EventValueCreate
	EventValueUpdate
	EventTaskStart
	EventTaskStop
	EventContractDeploy
	EventExecutionFailure
	EventLog
	EventCustom EventKind = 64
)

var kindNames = map[EventKind]string{
	EventUnknown:            "Unknown",
	EventChainCreate:        "ChainCreate",
	EventTokenMint:          "TokenMint",
	EventTokenBurn:          "TokenBurn",
	EventTokenSend:          "TokenSend",
	EventTokenReceive:       "TokenReceive",
	EventGasEscrow:          "GasEscrow",
	EventGasPayment:         "GasPayment",
	EventInflation:          "Inflation",
	EventAddressRegister:    "AddressRegister",
	EventAddressMigration:   "AddressMigration",
	EventOrganizationCreate: "OrganizationCreate",
	EventOrganizationAdd:    "OrganizationAdd",
	EventOrganizationRemove: "OrganizationRemove",
	EventValidatorPropose:   "ValidatorPropose",
	EventValidatorElect:     "ValidatorElect",
	EventValidatorRemove:    "ValidatorRemove",
	EventValidatorSwitch:    "ValidatorSwitch",
	EventValueCreate:        "ValueCreate",
	EventValueUpdate:        "ValueUpdate",
	EventTaskStart:          "TaskStart",
	EventTaskStop:           "TaskStop",
	EventContractDeploy:     "ContractDeploy",
	EventExecutionFailure:   "ExecutionFailure",
	EventLog:                "Log",
}

// String implements the fmt.Stringer interface.
func (k EventKind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	if k >= EventCustom {
		return fmt.Sprintf("Custom+%d", k-EventCustom)
	}
	return fmt.Sprintf("EventKind(%d)", k)
}

// emitters restricts the contracts allowed to emit a kind. An empty string
// stands for the runtime itself. Kinds missing from the map are open.
var emitters = map[EventKind][]string{
	EventChainCreate:        {""},
	EventTokenMint:          {"gas"},
	EventTokenBurn:          {"gas"},
	EventTokenSend:          {"gas"},
	EventTokenReceive:       {"gas"},
	EventGasEscrow:          {"gas"},
	EventGasPayment:         {"gas"},
	EventInflation:          {"gas"},
	EventAddressRegister:    {"account"},
	EventAddressMigration:   {"validator", "account"},
	EventOrganizationCreate: {"organization"},
	EventOrganizationAdd:    {"organization"},
	EventOrganizationRemove: {"organization"},
	EventValidatorPropose:   {"validator"},
	EventValidatorElect:     {"validator"},
	EventValidatorRemove:    {"validator"},
	EventValidatorSwitch:    {""},
	EventValueCreate:        {"governance"},
	EventValueUpdate:        {"governance"},
	EventTaskStart:          {""},
	EventTaskStop:           {""},
	EventContractDeploy:     {""},
	EventExecutionFailure:   {""},
}

// AllowedFrom reports if the named contract may emit events of this kind.
func (k EventKind) AllowedFrom(contract string) bool {
	list, restricted := emitters[k]
	if !restricted {
		return true
	}

	for _, c := range list {
		if c == contract {
			return true
		}
	}

	return false
}

// =============================================================================

// Event is a record emitted during execution.
type Event struct {
	Kind     EventKind `json:"kind"`
	Address  Address   `json:"address"`
	Contract string    `json:"contract"`
	Data     []byte    `json:"data,omitempty"`
}

// String implements the fmt.Stringer interface for logging.
func (e Event) String() string {
	return fmt.Sprintf("%s:%s:%s", e.Kind, e.Contract, e.Address)
}

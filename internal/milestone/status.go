package milestone

import (
	"fmt"
	"math/big"

	"github.com/danmuck/milestonectl/internal/protocol"
)

// Status is a live milestone's position in the tracker state machine.
// Values match the ledger's ordinals.
type Status uint8

const (
	StatusAcceptedAndInProgress Status = iota
	StatusCompleted
	StatusAuthorizedForPayment
	StatusCanceled
)

var statusNames = [...]string{
	StatusAcceptedAndInProgress: "AcceptedAndInProgress",
	StatusCompleted:             "Completed",
	StatusAuthorizedForPayment:  "AuthorizedForPayment",
	StatusCanceled:              "Canceled",
}

func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("milestone: %w: %d", protocol.ErrInvalidStatus, uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus maps a status name back to its value.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("milestone: %w: %q", protocol.ErrInvalidStatus, name)
}

// StatusFromOrdinal converts the ledger's numeric status slot.
func StatusFromOrdinal(v *big.Int) (Status, error) {
	if v == nil || !v.IsUint64() || v.Uint64() >= uint64(len(statusNames)) {
		return 0, protocol.Errorf("milestone", -1, protocol.ErrInvalidStatus, "ordinal %v", v)
	}
	return Status(v.Uint64()), nil
}

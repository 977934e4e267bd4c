package flags

import (
	"errors"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
)

var (
	ErrNotFound   = errors.New("flag not found")
	ErrInvalidKey = errors.New("invalid flag key")
)

type Flag struct {
	Key         string    `json:"key"`
	Value       bool      `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Known describes the flags the ledger reads. Other keys may be stored but
// have no effect.
var Known = map[string]string{
	constants.FlagAllowOversubscription:        "accept contributions that push a launch past its target",
	constants.FlagAllowUndersubscribedFinalize: "let a launcher finalize before the target is reached",
}

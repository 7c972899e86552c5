package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a trip-mode edge that does not exist.
var ErrInvalidTransition = errors.New("invalid trip mode transition")

// TripMode gates which overlays and controls are active.
//
//	Idle --Find--> Planning --Succeed--> Active --Cancel--> Idle
//	                  |--Fail/Cancel--> Idle
type TripMode int

const (
	TripIdle TripMode = iota
	TripPlanning
	TripActive
)

func (m TripMode) String() string {
	switch m {
	case TripIdle:
		return "idle"
	case TripPlanning:
		return "planning"
	case TripActive:
		return "active"
	default:
		return fmt.Sprintf("TripMode(%d)", int(m))
	}
}

func (m TripMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TripMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = TripIdle
	case "planning":
		*m = TripPlanning
	case "active":
		*m = TripActive
	default:
		return fmt.Errorf("unknown trip mode %q", b)
	}
	return nil
}

// Find starts a route request.
func (m TripMode) Find() (TripMode, error) {
	if m != TripIdle {
		return m, m.invalid("find")
	}
	return TripPlanning, nil
}

// Succeed installs a built route.
func (m TripMode) Succeed() (TripMode, error) {
	if m != TripPlanning {
		return m, m.invalid("succeed")
	}
	return TripActive, nil
}

// Fail abandons a route request.
func (m TripMode) Fail() (TripMode, error) {
	if m != TripPlanning {
		return m, m.invalid("fail")
	}
	return TripIdle, nil
}

// Cancel leaves trip mode from Planning or Active.
func (m TripMode) Cancel() (TripMode, error) {
	if m == TripIdle {
		return m, m.invalid("cancel")
	}
	return TripIdle, nil
}

func (m TripMode) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, m)
}

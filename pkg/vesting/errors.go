package vesting

import "errors"

var (
	ErrNotWhitelisted  = errors.New("buyer not whitelisted")
	ErrAfterIGO        = errors.New("sale closed at launch")
	ErrBelowMinimum    = errors.New("purchase below per-buyer minimum")
	ErrAboveMaximum    = errors.New("purchase above per-buyer maximum")
	ErrSaleExhausted   = errors.New("sale allocation exhausted")
	ErrBeforeIGO       = errors.New("unavailable before launch")
	ErrNotEnoughTokens = errors.New("nothing to claim")
	ErrLaunchPassed    = errors.New("launch instant already passed")
)

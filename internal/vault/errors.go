package vault

import "errors"

// Operation errors. Every failed operation aborts with no partial mutation;
// callers distinguish classes with errors.Is. Arithmetic failures surface as
// the fixedpoint package's sentinel errors.
var (
	// Authorization
	ErrUnauthorized = errors.New("caller is not authorized for this operation")

	// State
	ErrAlreadyInitialized = errors.New("protocol already initialized")
	ErrNotInitialized     = errors.New("protocol not initialized")
	ErrInvalidFeeBps      = errors.New("performance fee bps out of range")
	ErrPaused             = errors.New("protocol is paused")
	ErrPositionExists     = errors.New("position already exists")
	ErrPositionNotFound   = errors.New("position not found")
	ErrNothingToSweep     = errors.New("no accumulated fees to sweep")
	ErrUndefinedNav       = errors.New("nav undefined: no shares outstanding")

	// Input / liquidity
	ErrZeroAmount             = errors.New("amount must be greater than zero")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSlippageExceeded       = errors.New("minted shares below minimum")
	ErrInsufficientShares     = errors.New("insufficient shares")
	ErrInsufficientLiquidity  = errors.New("insufficient idle treasury liquidity")
	ErrExceedsDeploymentLimit = errors.New("exceeds maximum deployment allocation")
	ErrReturnExceedsDeployed  = errors.New("returned principal exceeds deployed capital")

	// Valuation
	ErrInvalidValuation      = errors.New("valuation timestamp outside freshness window")
	ErrNonMonotonicValuation = errors.New("valuation timestamp older than last accepted mark")
)

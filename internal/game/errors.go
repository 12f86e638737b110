package game

import "errors"

// Rule violations. They never change game state and are safe to report to the
// offending player.
var (
	ErrInvalidPosition  = errors.New("invalid position specified")
	ErrSameHex          = errors.New("tried to move a piece to its current location")
	ErrNoActionsLeft    = errors.New("you have already performed the maximum number of actions in this turn")
	ErrNoPiece          = errors.New("there is no piece on the specified hex")
	ErrNotYourPiece     = errors.New("tried to use a piece of the opponent")
	ErrAlreadyActed     = errors.New("tried to use a piece that has already acted in this turn")
	ErrUnreachable      = errors.New("the piece is unable to reach the destination")
	ErrOwnPiece         = errors.New("you cannot capture your own pieces")
	ErrAttackTooWeak    = errors.New("your attack is too weak to capture this piece")
	ErrNotPawn          = errors.New("only pawns can be promoted")
	ErrInvalidPromotion = errors.New("invalid promotion target")
	ErrContested        = errors.New("cannot promote a piece next to an enemy piece")
)

// Deployment errors returned by New.
var (
	ErrInvalidRules    = errors.New("rules must allow at least one action and one turn")
	ErrBadDeployment   = errors.New("invalid deployment")
	ErrDuplicatePlaced = errors.New("tried to deploy two pieces to the same hex")
)

package tourney

import "errors"

// Precondition failures surfaced to callers. Handlers match these with
// errors.Is; the messages are shown to captains as-is, so they must
// distinguish the cases clearly.
var (
	ErrNoTeams            = errors.New("no teams in the draft")
	ErrInvalidPick        = errors.New("pick number must not be negative")
	ErrSessionNotActive   = errors.New("the draft is not in progress")
	ErrNotYourTurn        = errors.New("it's not your team's turn to pick")
	ErrNotYourTeam        = errors.New("only the team's captain may pick for it")
	ErrPlayerUnavailable  = errors.New("that player is no longer available")
	ErrInsufficientTeams  = errors.New("at least 4 teams are required")
	ErrBracketExists      = errors.New("a bracket already exists for this tournament")
	ErrDuplicateProposal  = errors.New("you already have a pending proposal for this match")
	ErrOwnProposal        = errors.New("you cannot respond to your own proposal")
	ErrProposalResolved   = errors.New("a newer proposal already exists or this one was resolved")
	ErrNotAdmin           = errors.New("only the tournament admin may do this")
	ErrNotCaptain         = errors.New("only a captain of either team may do this")
	ErrInvalidTransition  = errors.New("invalid tournament status transition")
	ErrRegistrationClosed = errors.New("registration is not open")
	ErrCaptainsNotReady   = errors.New("waiting for all captains to connect")
	ErrAlreadyRegistered  = errors.New("you are already registered for this tournament")
)

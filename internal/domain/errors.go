package domain

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown team or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTeamNotFound indicates the team record does not exist.
	ErrTeamNotFound = errors.New("team not found")
	// ErrProgressNotFound indicates no progress record exists for the team.
	// Under correct provisioning this never happens after login.
	ErrProgressNotFound = errors.New("progress not found")
	// ErrRoundLocked is returned when a round has already been resolved and
	// permanently locked.
	ErrRoundLocked = errors.New("round permanently locked")
	// ErrNoQuestionAssigned is returned when submit is called before fetch.
	ErrNoQuestionAssigned = errors.New("no question assigned, fetch question first")
	// ErrNoQuestionsAvailable indicates the repository has no questions for
	// the requested type.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrQuestionNotFound indicates a pinned question ID no longer resolves.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidInput flags a malformed answer payload; nothing is mutated.
	ErrInvalidInput = errors.New("invalid input")
)

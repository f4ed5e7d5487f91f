package app

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"gauntlet-game-service/internal/domain"
)

// TeamStore looks up credential records.
type TeamStore interface {
	Get(ctx context.Context, teamID string) (domain.Team, error)
}

// TokenIssuer signs session tokens for authenticated teams.
type TokenIssuer interface {
	Issue(teamID string) (string, error)
}

// AuthService verifies team credentials and provisions progress on first
// login. Re-login never touches timing fields: the countdown is derived
// purely from the stored start time, so logging out and back in neither
// resets nor extends the clock.
type AuthService struct {
	teams    TeamStore
	progress ProgressStore
	tokens   TokenIssuer
	clock    clockwork.Clock
}

func NewAuthService(teams TeamStore, progress ProgressStore, tokens TokenIssuer, clock clockwork.Clock) *AuthService {
	return &AuthService{teams: teams, progress: progress, tokens: tokens, clock: clock}
}

// LoginResult carries the session token and the progress snapshot clients
// render after login.
type LoginResult struct {
	Token    string
	TeamID   string
	Progress domain.Progress
}

// Login authenticates a team and returns a token plus its progress record,
// creating the record with the current time on first login.
func (a *AuthService) Login(ctx context.Context, teamID, password string) (LoginResult, error) {
	id := domain.NormalizeTeamID(teamID)
	if id == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	team, err := a.teams.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			// Same answer as a wrong password; lookups must not reveal
			// which teams exist.
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	progress, err := a.progress.GetOrCreate(ctx, domain.NewProgress(id, a.clock.Now()))
	if err != nil {
		return LoginResult{}, err
	}

	token, err := a.tokens.Issue(id)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, TeamID: id, Progress: progress}, nil
}

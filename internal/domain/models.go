package domain

import (
	"strings"
	"time"
)

// Team holds the credentials record for a team. The hash never leaves the
// credential store boundary.
type Team struct {
	ID           string
	PasswordHash string
}

// NormalizeTeamID canonicalizes a team identifier for case-insensitive lookup.
func NormalizeTeamID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Question is the full question record including the concealed answer.
// Answer is excluded from JSON so it can never leak through a serialized
// projection; read-facing code goes through Public instead.
type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Prompt   string       `json:"prompt"`
	Choices  []string     `json:"choices,omitempty"`
	AssetURL string       `json:"assetUrl,omitempty"`
	Answer   string       `json:"-"`
}

// PublicQuestion is the read projection of a question.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices,omitempty"`
	AssetURL string   `json:"assetUrl,omitempty"`
}

// Public strips the concealed answer from a question.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Prompt: q.Prompt, Choices: q.Choices, AssetURL: q.AssetURL}
}

// Progress is the per-team state machine record: lock states, pinned
// questions, and timing. One record exists per team, created on first login.
type Progress struct {
	TeamID          string
	StartTime       time.Time
	EndTime         *time.Time
	CompletedRounds int
	Locks           map[RoundKey]LockState
	Assigned        map[RoundKey][]string
	Variant         Variant
}

// NewProgress seeds a fresh record with every round locked.
func NewProgress(teamID string, start time.Time) Progress {
	locks := make(map[RoundKey]LockState, len(Rounds()))
	for _, r := range Rounds() {
		locks[r] = Locked
	}
	return Progress{
		TeamID:    teamID,
		StartTime: start,
		Locks:     locks,
		Assigned:  make(map[RoundKey][]string),
	}
}

// Clone deep-copies the record so stores can hand out snapshots safely.
func (p Progress) Clone() Progress {
	out := p
	out.Locks = make(map[RoundKey]LockState, len(p.Locks))
	for k, v := range p.Locks {
		out.Locks[k] = v
	}
	out.Assigned = make(map[RoundKey][]string, len(p.Assigned))
	for k, ids := range p.Assigned {
		out.Assigned[k] = append([]string(nil), ids...)
	}
	if p.EndTime != nil {
		t := *p.EndTime
		out.EndTime = &t
	}
	return out
}

// Completed reports whether the game has been finalized for this team.
func (p Progress) Completed() bool {
	return p.EndTime != nil
}

// TotalSeconds is the elapsed game time in whole seconds, defined only once
// EndTime is set.
func (p Progress) TotalSeconds() int64 {
	if p.EndTime == nil {
		return 0
	}
	return int64(p.EndTime.Sub(p.StartTime).Round(time.Second) / time.Second)
}

// LeaderboardEntry is one ranked row of the final standings.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	TeamID          string `json:"teamId"`
	TotalTime       int64  `json:"totalTime"`
	CompletedRounds int    `json:"completedRounds"`
}

// Leaderboard is a read-only snapshot of the standings.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

package app

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"gauntlet-game-service/internal/domain"
)

// ProgressStore abstracts how per-team progress records are stored
// (in-memory, Postgres, etc). Update must apply the mutation under per-team
// serialization: two concurrent updates for the same team never interleave.
type ProgressStore interface {
	GetOrCreate(ctx context.Context, p domain.Progress) (domain.Progress, error)
	Get(ctx context.Context, teamID string) (domain.Progress, error)
	List(ctx context.Context) ([]domain.Progress, error)
	Update(ctx context.Context, teamID string, mutate func(*domain.Progress) error) (domain.Progress, error)
}

// QuestionRepository loads question content (from cache/backing store).
// Implementations must keep concealed answers out of any read projection
// they expose publicly; within the service boundary answers are available
// for grading.
type QuestionRepository interface {
	FindByType(ctx context.Context, t domain.QuestionType) ([]domain.Question, error)
	FindByID(ctx context.Context, id string) (domain.Question, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// Notifier is signalled whenever a team's game is finalized, so read-side
// views (the live leaderboard) can refresh.
type Notifier interface {
	Finalized(ctx context.Context)
}

// GameService is the round engine: it pins questions, grades single-attempt
// submissions, runs the countdown bookkeeping, and finalizes games.
type GameService struct {
	progress  ProgressStore
	questions QuestionRepository
	clock     clockwork.Clock
	budget    time.Duration
	notifier  Notifier
}

// DefaultBudget is the fixed game countdown.
const DefaultBudget = 30 * time.Minute

func NewGameService(progress ProgressStore, questions QuestionRepository, clock clockwork.Clock, budget time.Duration) *GameService {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &GameService{
		progress:  progress,
		questions: questions,
		clock:     clock,
		budget:    budget,
	}
}

// SetNotifier wires the finalization signal; nil disables it.
func (s *GameService) SetNotifier(n Notifier) {
	s.notifier = n
}

// FetchResult is the public outcome of a round fetch. When the round is
// already unlocked no questions are returned.
type FetchResult struct {
	Unlocked  bool
	Questions []domain.PublicQuestion
	Variant   domain.Variant
}

// Submission carries a round answer: Answer for single-question rounds,
// Answers keyed by question ID for the multiple-choice round.
type Submission struct {
	Answer  string
	Answers map[string]string
}

// SubmitResult reports a graded submission together with the post-submit
// state the clients render. TotalTime and EndTime are set only when this
// submission finished the game.
type SubmitResult struct {
	Correct         bool
	Locks           map[domain.RoundKey]domain.LockState
	CompletedRounds int
	EndTime         *time.Time
	TotalTime       int64
}

// Fetch returns the pinned question(s) for a round, pinning a uniformly
// random selection on first call so repeated fetches are stable.
func (s *GameService) Fetch(ctx context.Context, teamID string, round domain.RoundKey, variant domain.Variant) (FetchResult, error) {
	if !round.Valid() {
		return FetchResult{}, domain.ErrInvalidInput
	}

	// Fast path: no mutation needed for resolved rounds or existing pins.
	p, err := s.progress.Get(ctx, teamID)
	if err != nil {
		return FetchResult{}, err
	}
	switch p.Locks[round] {
	case domain.PermanentlyLocked:
		return FetchResult{}, domain.ErrRoundLocked
	case domain.Unlocked:
		return FetchResult{Unlocked: true}, nil
	}
	if ids := p.Assigned[round]; len(ids) > 0 {
		return s.loadPinned(ctx, p, round, ids)
	}

	var res FetchResult
	_, err = s.progress.Update(ctx, teamID, func(p *domain.Progress) error {
		// Re-check under the per-team lock; a concurrent call may have
		// resolved the round or pinned a question already.
		switch p.Locks[round] {
		case domain.PermanentlyLocked:
			return domain.ErrRoundLocked
		case domain.Unlocked:
			res = FetchResult{Unlocked: true}
			return nil
		}
		if ids := p.Assigned[round]; len(ids) > 0 {
			pinned, err := s.loadPinned(ctx, *p, round, ids)
			if err != nil {
				return err
			}
			res = pinned
			return nil
		}

		effective := variant
		if round == domain.RoundCodeTrace && p.Variant != "" {
			effective = p.Variant
		}
		qtype, err := domain.QuestionTypeFor(round, effective)
		if err != nil {
			return err
		}

		candidates, err := s.questions.FindByType(ctx, qtype)
		if err != nil {
			return err
		}
		want := 1
		if round == domain.RoundMCQ {
			want = domain.MCQPinCount
		}
		if len(candidates) < want {
			return domain.ErrNoQuestionsAvailable
		}

		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		picked := candidates[:want]

		ids := make([]string, 0, want)
		questions := make([]domain.PublicQuestion, 0, want)
		for _, q := range picked {
			ids = append(ids, q.ID)
			questions = append(questions, q.Public())
		}
		p.Assigned[round] = ids
		if round == domain.RoundCodeTrace {
			p.Variant = effective
		}
		res = FetchResult{Questions: questions, Variant: p.Variant}
		return nil
	})
	if err != nil {
		return FetchResult{}, err
	}
	return res, nil
}

func (s *GameService) loadPinned(ctx context.Context, p domain.Progress, round domain.RoundKey, ids []string) (FetchResult, error) {
	pinned, err := s.questions.FindByIDs(ctx, ids)
	if err != nil {
		return FetchResult{}, err
	}
	if len(pinned) != len(ids) {
		return FetchResult{}, domain.ErrQuestionNotFound
	}
	questions := make([]domain.PublicQuestion, 0, len(pinned))
	for _, q := range pinned {
		questions = append(questions, q.Public())
	}
	variant := domain.Variant("")
	if round == domain.RoundCodeTrace {
		variant = p.Variant
	}
	return FetchResult{Questions: questions, Variant: variant}, nil
}

// Submit grades the single attempt for a round. A correct answer unlocks the
// round; a wrong one locks it permanently. Submitting an already-unlocked
// round reports success without mutating anything.
func (s *GameService) Submit(ctx context.Context, teamID string, round domain.RoundKey, sub Submission) (SubmitResult, error) {
	if !round.Valid() {
		return SubmitResult{}, domain.ErrInvalidInput
	}

	var res SubmitResult
	finalized := false
	_, err := s.progress.Update(ctx, teamID, func(p *domain.Progress) error {
		switch p.Locks[round] {
		case domain.PermanentlyLocked:
			return domain.ErrRoundLocked
		case domain.Unlocked:
			res = s.result(*p, true)
			return nil
		}
		ids := p.Assigned[round]
		if len(ids) == 0 {
			return domain.ErrNoQuestionAssigned
		}
		pinned, err := s.questions.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(pinned) != len(ids) {
			return domain.ErrQuestionNotFound
		}

		correct, err := grade(round, pinned, sub)
		if err != nil {
			return err
		}

		if correct {
			p.Locks[round] = domain.Unlocked
			p.CompletedRounds++
			if round == domain.FinalRound && p.EndTime == nil {
				now := s.clock.Now()
				p.EndTime = &now
				finalized = true
			}
		} else {
			p.Locks[round] = domain.PermanentlyLocked
		}
		res = s.result(*p, correct)
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if finalized && s.notifier != nil {
		s.notifier.Finalized(ctx)
	}
	return res, nil
}

func (s *GameService) result(p domain.Progress, correct bool) SubmitResult {
	res := SubmitResult{
		Correct:         correct,
		Locks:           p.Clone().Locks,
		CompletedRounds: p.CompletedRounds,
	}
	if correct && p.EndTime != nil {
		t := *p.EndTime
		res.EndTime = &t
		res.TotalTime = int64(p.EndTime.Sub(p.StartTime) / time.Second)
	}
	return res
}

// grade applies the per-round comparison policy. An input error means the
// payload was malformed and no attempt is consumed.
func grade(round domain.RoundKey, pinned []domain.Question, sub Submission) (bool, error) {
	switch round {
	case domain.RoundDecode:
		answer := strings.TrimSpace(sub.Answer)
		if len(answer) != 4 || !allDigits(answer) {
			return false, domain.ErrInvalidInput
		}
		// Numeric code round compares exactly.
		return answer == strings.TrimSpace(pinned[0].Answer), nil
	case domain.RoundMCQ:
		if len(sub.Answers) == 0 {
			return false, domain.ErrInvalidInput
		}
		for _, q := range pinned {
			if _, ok := sub.Answers[q.ID]; !ok {
				return false, domain.ErrInvalidInput
			}
		}
		// Every answer must match independently; one miss fails the round.
		for _, q := range pinned {
			if !answersMatch(sub.Answers[q.ID], q.Answer) {
				return false, nil
			}
		}
		return true, nil
	default:
		if strings.TrimSpace(sub.Answer) == "" {
			return false, domain.ErrInvalidInput
		}
		return answersMatch(sub.Answer, pinned[0].Answer), nil
	}
}

func answersMatch(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// StatusReport is the read view of a team's progress.
type StatusReport struct {
	Locks            map[domain.RoundKey]domain.LockState `json:"locks"`
	CompletedRounds  int                                  `json:"completedRounds"`
	StartTime        time.Time                            `json:"startTime"`
	EndTime          *time.Time                           `json:"endTime"`
	RemainingSeconds int64                                `json:"remainingSeconds"`
}

// Status returns the current locks and timing for a team.
func (s *GameService) Status(ctx context.Context, teamID string) (StatusReport, error) {
	p, err := s.progress.Get(ctx, teamID)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		Locks:            p.Clone().Locks,
		CompletedRounds:  p.CompletedRounds,
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		RemainingSeconds: int64(s.Remaining(p) / time.Second),
	}, nil
}

// Remaining computes the countdown directly from the stored start time.
// The clock runs in wall time whether or not the team is logged in; a
// finished game always reports zero.
func (s *GameService) Remaining(p domain.Progress) time.Duration {
	if p.EndTime != nil {
		return 0
	}
	left := s.budget - s.clock.Now().Sub(p.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// CompleteResult reports a timeout finalization.
type CompleteResult struct {
	AlreadyCompleted bool
	EndTime          time.Time
	TotalTime        int64
	Locks            map[domain.RoundKey]domain.LockState
	CompletedRounds  int
}

// CompleteGame finalizes a team's run on timeout: the end time is recorded
// once and every round still merely locked is closed out permanently.
// Resolved rounds are untouched. Calling it again is a no-op.
func (s *GameService) CompleteGame(ctx context.Context, teamID string) (CompleteResult, error) {
	var res CompleteResult
	finalized := false
	_, err := s.progress.Update(ctx, teamID, func(p *domain.Progress) error {
		if p.EndTime != nil {
			res = CompleteResult{
				AlreadyCompleted: true,
				EndTime:          *p.EndTime,
				TotalTime:        int64(p.EndTime.Sub(p.StartTime) / time.Second),
				Locks:            p.Clone().Locks,
				CompletedRounds:  p.CompletedRounds,
			}
			return nil
		}
		now := s.clock.Now()
		p.EndTime = &now
		for _, r := range domain.Rounds() {
			if p.Locks[r] == domain.Locked {
				p.Locks[r] = domain.PermanentlyLocked
			}
		}
		finalized = true
		res = CompleteResult{
			EndTime:         now,
			TotalTime:       int64(now.Sub(p.StartTime) / time.Second),
			Locks:           p.Clone().Locks,
			CompletedRounds: p.CompletedRounds,
		}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}
	if finalized && s.notifier != nil {
		s.notifier.Finalized(ctx)
	}
	return res, nil
}

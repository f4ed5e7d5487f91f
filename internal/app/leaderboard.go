package app

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"gauntlet-game-service/internal/domain"
)

// LeaderboardService derives the ranked standings from progress records and
// fans out fresh snapshots to subscribers whenever a game is finalized.
type LeaderboardService struct {
	progress ProgressStore
	clock    clockwork.Clock

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardService(progress ProgressStore, clock clockwork.Clock) *LeaderboardService {
	return &LeaderboardService{
		progress:    progress,
		clock:       clock,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Leaderboard computes the current standings. Only full sweeps qualify: the
// final round unlocked, an end time recorded, and all five rounds completed.
// Partial completions never appear.
func (l *LeaderboardService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	all, err := l.progress.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(all))
	for _, p := range all {
		if p.Locks[domain.FinalRound] != domain.Unlocked || p.EndTime == nil || p.CompletedRounds != len(domain.Rounds()) {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			TeamID:          p.TeamID,
			TotalTime:       p.TotalSeconds(),
			CompletedRounds: p.CompletedRounds,
		})
	}

	// CompletedRounds is constant post-filter but stays the primary key so
	// the ordering survives if the qualifying rule is ever loosened.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CompletedRounds != entries[j].CompletedRounds {
			return entries[i].CompletedRounds > entries[j].CompletedRounds
		}
		if entries[i].TotalTime != entries[j].TotalTime {
			return entries[i].TotalTime < entries[j].TotalTime
		}
		return entries[i].TeamID < entries[j].TeamID
	})
	// Dense ranks: teams tied on both keys share a rank.
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].CompletedRounds != entries[i-1].CompletedRounds || entries[i].TotalTime != entries[i-1].TotalTime {
			rank++
		}
		entries[i].Rank = rank
	}

	return domain.Leaderboard{Entries: entries, UpdatedAt: l.clock.Now()}, nil
}

// Subscribe returns a channel receiving leaderboard snapshots. The caller
// must invoke the cancel function to avoid leaks.
func (l *LeaderboardService) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	l.mu.Lock()
	l.subscribers[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// Finalized implements Notifier: recompute the standings and broadcast them.
func (l *LeaderboardService) Finalized(ctx context.Context) {
	lb, err := l.Leaderboard(ctx)
	if err != nil {
		return
	}
	l.broadcast(lb)
}

func (l *LeaderboardService) broadcast(lb domain.Leaderboard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow client never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"gauntlet-game-service/internal/app"
	"gauntlet-game-service/internal/auth"
	"gauntlet-game-service/internal/domain"
	"gauntlet-game-service/internal/infra/memory"
)

var serverStart = time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)

type testServer struct {
	srv   *httptest.Server
	clock *clockwork.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	teams := memory.NewTeamStore([]domain.Team{{ID: "TEAM1", PasswordHash: string(hash)}})
	questions := memory.NewStaticQuestionRepository([]domain.Question{
		{ID: "op1", Type: domain.TypeOpening, Prompt: "Enter the code phrase", Answer: "cachemeifyoucan"},
		{ID: "lg1", Type: domain.TypeLogic, Prompt: "Complete the series: 2, 6, 12, 20, 30, ?", Answer: "42"},
		{ID: "ca1", Type: domain.TypeCodeTraceA, Prompt: "What does this print?", Answer: "15"},
		{ID: "cb1", Type: domain.TypeCodeTraceB, Prompt: "What does this print?", Answer: "30"},
		{ID: "dc1", Type: domain.TypeDecode, Prompt: "Guess the 4-digit number", AssetURL: "/assets/decode1.png", Answer: "9876"},
		{ID: "m1", Type: domain.TypeMCQ, Prompt: "What does HEX stand for?", Choices: []string{"Hexadecimal", "Hexagon"}, Answer: "Hexadecimal"},
		{ID: "m2", Type: domain.TypeMCQ, Prompt: "Default char size in C?", Choices: []string{"char", "int"}, Answer: "char"},
		{ID: "m3", Type: domain.TypeMCQ, Prompt: "How many bits in a nibble?", Choices: []string{"2", "4"}, Answer: "2"},
	})

	clock := clockwork.NewFakeClockAt(serverStart)
	progress := memory.NewProgressStore()
	tokens := auth.NewManager("test-secret", time.Hour)

	authSvc := app.NewAuthService(teams, progress, tokens, clock)
	game := app.NewGameService(progress, questions, clock, app.DefaultBudget)
	lb := app.NewLeaderboardService(progress, clock)
	game.SetNotifier(lb)

	h := NewHandler(authSvc, game, lb, tokens, zerolog.Nop())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, clock: clock}
}

func (ts *testServer) login(t *testing.T, teamID, password string) (string, *nethttp.Response) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"teamId": teamID, "password": password})
	resp, err := nethttp.Post(ts.srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		return "", resp
	}
	defer resp.Body.Close()
	var res loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return res.Token, resp
}

func (ts *testServer) do(t *testing.T, token, method, path string, payload interface{}) *nethttp.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req, err := nethttp.NewRequest(method, ts.srv.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t)

	token, _ := ts.login(t, "team1", "pass123")
	if token == "" {
		t.Fatal("expected token from login")
	}

	if _, resp := ts.login(t, "TEAM1", "wrong"); resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", resp.StatusCode)
	}
	if _, resp := ts.login(t, "NOBODY", "pass123"); resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("unknown team: expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "", nethttp.MethodGet, "/api/game/status", nil)
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = ts.do(t, "not-a-token", nethttp.MethodGet, "/api/game/status", nil)
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestFetchConcealsAnswer(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	resp := ts.do(t, token, nethttp.MethodGet, "/api/game/opening", nil)
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("fetch opening: status %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(strings.ToLower(string(raw)), "cachemeifyoucan") {
		t.Fatalf("answer leaked in response: %s", raw)
	}
	var fr fetchResponse
	if err := json.Unmarshal(raw, &fr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fr.Question == nil || fr.Question.ID != "op1" {
		t.Fatalf("unexpected fetch payload: %s", raw)
	}
}

func TestSubmitFlow(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	resp := ts.do(t, token, nethttp.MethodGet, "/api/game/opening", nil)
	resp.Body.Close()

	resp = ts.do(t, token, nethttp.MethodPost, "/api/game/opening/submit", map[string]string{"answer": "CacheMeIfYouCan"})
	var sub submitResponse
	decodeBody(t, resp, &sub)
	if !sub.Correct {
		t.Fatal("expected correct submission")
	}
	if sub.Locks[domain.RoundOpening] != domain.Unlocked {
		t.Fatalf("opening lock = %q", sub.Locks[domain.RoundOpening])
	}
	if sub.CompletedRounds != 1 {
		t.Fatalf("completedRounds = %d", sub.CompletedRounds)
	}

	resp = ts.do(t, token, nethttp.MethodGet, "/api/game/status", nil)
	var status app.StatusReport
	decodeBody(t, resp, &status)
	if status.CompletedRounds != 1 {
		t.Fatalf("status completedRounds = %d", status.CompletedRounds)
	}
	if status.RemainingSeconds != int64(app.DefaultBudget/time.Second) {
		t.Fatalf("remainingSeconds = %d", status.RemainingSeconds)
	}
}

func TestWrongAnswerLocksRound(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	ts.do(t, token, nethttp.MethodGet, "/api/game/logic", nil).Body.Close()

	resp := ts.do(t, token, nethttp.MethodPost, "/api/game/logic/submit", map[string]string{"answer": "999"})
	var sub submitResponse
	decodeBody(t, resp, &sub)
	if sub.Correct {
		t.Fatal("expected wrong answer")
	}
	if sub.Locks[domain.RoundLogic] != domain.PermanentlyLocked {
		t.Fatalf("logic lock = %q", sub.Locks[domain.RoundLogic])
	}

	resp = ts.do(t, token, nethttp.MethodGet, "/api/game/logic", nil)
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusForbidden {
		t.Fatalf("expected 403 on locked round, got %d", resp.StatusCode)
	}
}

func TestSubmitBeforeFetch(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	resp := ts.do(t, token, nethttp.MethodPost, "/api/game/decode/submit", map[string]string{"answer": "9876"})
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("expected 400 before fetch, got %d", resp.StatusCode)
	}
}

func TestCodetraceVariant(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	resp := ts.do(t, token, nethttp.MethodGet, "/api/game/codetrace?variant=rust", nil)
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("expected 400 for bad variant, got %d", resp.StatusCode)
	}

	resp = ts.do(t, token, nethttp.MethodGet, "/api/game/codetrace?variant=b", nil)
	var fr fetchResponse
	decodeBody(t, resp, &fr)
	if fr.Variant != domain.VariantB || fr.Question == nil || fr.Question.ID != "cb1" {
		t.Fatalf("unexpected codetrace payload: %+v", fr)
	}
}

func TestFullRunAppearsOnLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	answers := map[domain.RoundKey]map[string]string{
		domain.RoundOpening:   {"answer": "cachemeifyoucan"},
		domain.RoundLogic:     {"answer": "42"},
		domain.RoundCodeTrace: {"answer": "15"},
		domain.RoundDecode:    {"answer": "9876"},
	}
	for _, round := range domain.Rounds() {
		if round == domain.RoundMCQ {
			continue
		}
		fetchPath := "/api/game/" + string(round)
		if round == domain.RoundCodeTrace {
			fetchPath += "?variant=a"
		}
		ts.do(t, token, nethttp.MethodGet, fetchPath, nil).Body.Close()
		resp := ts.do(t, token, nethttp.MethodPost, "/api/game/"+string(round)+"/submit", answers[round])
		var sub submitResponse
		decodeBody(t, resp, &sub)
		if !sub.Correct {
			t.Fatalf("round %s: expected correct", round)
		}
	}

	ts.clock.Advance(10 * time.Minute)

	resp := ts.do(t, token, nethttp.MethodGet, "/api/game/mcq", nil)
	var fr fetchResponse
	decodeBody(t, resp, &fr)
	if len(fr.Questions) != domain.MCQPinCount {
		t.Fatalf("expected %d mcq questions, got %d", domain.MCQPinCount, len(fr.Questions))
	}
	mcqAnswers := map[string]string{"m1": "Hexadecimal", "m2": "char", "m3": "2"}
	resp = ts.do(t, token, nethttp.MethodPost, "/api/game/mcq/submit", map[string]interface{}{"answers": mcqAnswers})
	var sub submitResponse
	decodeBody(t, resp, &sub)
	if !sub.Correct || sub.CompletedRounds != len(domain.Rounds()) {
		t.Fatalf("final submit: correct=%v rounds=%d", sub.Correct, sub.CompletedRounds)
	}
	if sub.TotalTime == nil || *sub.TotalTime != 600 {
		t.Fatalf("totalTime = %v", sub.TotalTime)
	}

	resp = ts.do(t, "", nethttp.MethodGet, "/api/leaderboard", nil)
	var lb domain.Leaderboard
	decodeBody(t, resp, &lb)
	if len(lb.Entries) != 1 {
		t.Fatalf("expected 1 leaderboard entry, got %d", len(lb.Entries))
	}
	entry := lb.Entries[0]
	if entry.TeamID != "TEAM1" || entry.Rank != 1 || entry.TotalTime != 600 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestCompleteEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.login(t, "TEAM1", "pass123")

	ts.clock.Advance(30 * time.Minute)

	resp := ts.do(t, token, nethttp.MethodPost, "/api/game/complete", nil)
	var res completeResponse
	decodeBody(t, resp, &res)
	if res.TotalTime != 1800 {
		t.Fatalf("totalTime = %d", res.TotalTime)
	}
	for _, round := range domain.Rounds() {
		if res.Locks[round] != domain.PermanentlyLocked {
			t.Fatalf("round %s not locked after timeout: %q", round, res.Locks[round])
		}
	}

	resp = ts.do(t, token, nethttp.MethodPost, "/api/game/complete", nil)
	var again completeResponse
	decodeBody(t, resp, &again)
	if again.Message != "game already completed" {
		t.Fatalf("expected idempotent completion, got %q", again.Message)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "", nethttp.MethodGet, "/api/leaderboard", nil)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `"leaderboard":[]`) {
		t.Fatalf("expected empty leaderboard array, got %s", raw)
	}
}

package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/crypto/bcrypt"

	"gauntlet-game-service/internal/config"
	"gauntlet-game-service/internal/domain"
)

// NewSeedCmd loads the stock teams and question bank into Postgres.
// Existing teams and questions are replaced; progress is left alone.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed teams and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, log)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	if _, err := db.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return err
	}

	teams, err := seedTeamRecords()
	if err != nil {
		return err
	}
	for _, t := range teams {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO teams (id, password_hash) VALUES (?, ?)`,
			t.ID, t.PasswordHash); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(teams)).Msg("teams inserted")

	questions := seedQuestions()
	for _, q := range questions {
		var choices interface{}
		if len(q.Choices) > 0 {
			data, err := json.Marshal(q.Choices)
			if err != nil {
				return err
			}
			choices = string(data)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO questions (id, qtype, prompt, choices, asset_url, answer) VALUES (?, ?, ?, ?::jsonb, ?, ?)`,
			q.ID, string(q.Type), q.Prompt, choices, q.AssetURL, q.Answer); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(questions)).Msg("questions inserted")
	return nil
}

// seedTeamRecords hashes the demo credentials. Also used by the in-memory
// fallback so demo mode accepts the same logins.
func seedTeamRecords() ([]domain.Team, error) {
	ids := []string{"TEAM1", "TEAM2", "TEAM3", "TEAM4", "TEAM5"}
	teams := make([]domain.Team, 0, len(ids))
	for _, id := range ids {
		hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		teams = append(teams, domain.Team{ID: id, PasswordHash: string(hash)})
	}
	return teams, nil
}

func seedQuestions() []domain.Question {
	q := func(t domain.QuestionType, prompt, answer string) domain.Question {
		return domain.Question{ID: uuid.NewString(), Type: t, Prompt: prompt, Answer: answer}
	}
	mcq := func(prompt string, choices []string, answer string) domain.Question {
		return domain.Question{ID: uuid.NewString(), Type: domain.TypeMCQ, Prompt: prompt, Choices: choices, Answer: answer}
	}
	decode := func(prompt, assetURL, answer string) domain.Question {
		return domain.Question{ID: uuid.NewString(), Type: domain.TypeDecode, Prompt: prompt, AssetURL: assetURL, Answer: answer}
	}

	return []domain.Question{
		q(domain.TypeOpening, "Enter the secret code to proceed", "cachemeifyoucan"),

		q(domain.TypeLogic, "Complete the series: 2, 6, 12, 20, 30, ?", "42"),
		q(domain.TypeLogic, "Five years ago, the ratio of A's age to B's age was 3:4. After 5 years, the ratio will be 5:6. Find A's present age.", "15"),
		q(domain.TypeLogic, "A can complete a work in 12 days and B in 18 days. They work together for 4 days, then A leaves. How many more days does B need to complete the work?", "8"),
		q(domain.TypeLogic, "If 1 → 1, 2 → 4, 3 → 27, 4 → 256, then 5 → ?", "3125"),
		q(domain.TypeLogic, "A person travels half the distance at 40 km/h and the other half at 60 km/h. What is the average speed?", "48"),
		q(domain.TypeLogic, "A two-digit number has digits summing to 9. When reversed, it increases by 27. What is the number?", "36"),
		q(domain.TypeLogic, "Complete the pattern: 3, 7, 15, 31, 63, ?", "127"),

		q(domain.TypeCodeTraceA, "What is the output of:\n\ndef f(n):\n    if n == 0:\n        return 0\n    return n + f(n-1)\n\nprint(f(5))", "15"),
		q(domain.TypeCodeTraceA, "What is the output of:\n\ndef f(n):\n    if n <= 1:\n        return 1\n    return f(n-1) * n\n\nprint(f(4))", "24"),
		q(domain.TypeCodeTraceA, "What is the output of:\n\ndef f(n):\n    if n == 1:\n        return 1\n    return 2 * f(n-1)\n\nprint(f(4))", "8"),
		q(domain.TypeCodeTraceA, "What is the output of:\n\nx = lambda a: a * 2\nprint(x(5))", "10"),
		q(domain.TypeCodeTraceA, "What is the output of:\n\nfuncs = []\nfor i in range(3):\n    funcs.append(lambda: i)\n\nprint(funcs[0](), funcs[1](), funcs[2]())", "2 2 2"),

		q(domain.TypeCodeTraceB, "What is the output of:\n\n#include <stdio.h>\nint main() {\n    int arr[] = {10, 20, 30, 40};\n    int *p = arr;\n    printf(\"%d\", *(p + 2));\n}", "30"),
		q(domain.TypeCodeTraceB, "What is the output of:\n\n#include <stdio.h>\nint main() {\n    int arr[] = {1, 2, 3, 4};\n    int *p = arr;\n    printf(\"%d\", *p + *(p+3));\n}", "5"),
		q(domain.TypeCodeTraceB, "What is the output of:\n\n#include <stdio.h>\nint main() {\n    int arr[] = {5, 10, 15};\n    int *p = arr;\n    p++;\n    printf(\"%d\", *p);\n}", "10"),
		q(domain.TypeCodeTraceB, "What is the output of:\n\n#include <stdio.h>\nint main() {\n    int arr[3][2] = {{1,2},{3,4},{5,6}};\n    printf(\"%d\", *(*(arr+2)+1));\n}", "6"),
		q(domain.TypeCodeTraceB, "What is the output of:\n\n#include <stdio.h>\nint main() {\n    int arr[] = {10,20,30,40};\n    int *p = arr;\n    printf(\"%d\", p[1] + p[2]);\n}", "50"),

		decode("Study the Cows & Bulls clues in the image and guess the secret 4-digit number.",
			"https://res.cloudinary.com/de8hc8le4/image/upload/v1771321965/cows-bulls-1.png", "3719"),
		decode("Study the Cows & Bulls clues in the image and guess the secret 4-digit number.",
			"https://res.cloudinary.com/de8hc8le4/image/upload/v1771335191/cows-bulls-2.png", "9876"),

		mcq("Which of the following number systems uses base 16?", []string{"Binary", "Octal", "Decimal", "Hexadecimal"}, "Hexadecimal"),
		mcq("Which data type in C is used to store a single character?", []string{"int", "float", "char", "double"}, "char"),
		mcq("What will be the output of: printf(\"%d\", 5/2); in C?", []string{"2", "2.5", "3", "Error"}, "2"),
		mcq("Which of the following is not an input device?", []string{"Keyboard", "Mouse", "Monitor", "Scanner"}, "Monitor"),
		mcq("Which operator is used for logical AND in C?", []string{"&", "&&", "||", "!"}, "&&"),
		mcq("Which data structure follows FIFO (First In First Out)?", []string{"Stack", "Queue", "Array", "Tree"}, "Queue"),
		mcq("What is the default return type of main() in C?", []string{"void", "int", "float", "char"}, "int"),
		mcq("Which loop is guaranteed to execute at least once?", []string{"for loop", "while loop", "do-while loop", "infinite loop"}, "do-while loop"),
		mcq("Which component of a computer performs arithmetic and logical operations?", []string{"Control Unit", "ALU", "RAM", "Hard Disk"}, "ALU"),
		mcq("Which of the following is used to declare an array in C?", []string{"int arr()", "int arr[];", "array int[];", "arr int[];"}, "int arr[];"),
	}
}

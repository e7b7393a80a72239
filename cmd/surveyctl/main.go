// surveyctl administers the survey catalog and inspects recorded answers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sharrell/surveybot/internal/store"
	"github.com/sharrell/surveybot/internal/survey"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:          "surveyctl",
		Short:        "SurveyBot catalog administration",
		Long:         "Manage the survey question catalog and inspect caller answers.",
		SilenceUsage: true,
	}

	_ = godotenv.Load()
	defaultDB := os.Getenv("DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/survey.db"
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to the survey database")

	cmd.AddCommand(newQuestionCommand(&dbPath))
	cmd.AddCommand(newAnswersCommand(&dbPath))

	return cmd
}

func newQuestionCommand(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Manage the question catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Append a question to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(ctx context.Context, repo store.Repository) error {
				q, err := repo.AddQuestion(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("added question %d: %s\n", q.ID, q.Text)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the catalog in the order questions are asked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(ctx context.Context, repo store.Repository) error {
				questions, err := repo.ListQuestions(ctx)
				if err != nil {
					return err
				}
				for _, q := range questions {
					fmt.Printf("%d\t%s\n", q.ID, q.Text)
				}
				return nil
			})
		},
	})

	return cmd
}

func newAnswersCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "answers <phone_number>",
		Short: "Show a caller's questions and recorded answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*dbPath, func(ctx context.Context, repo store.Repository) error {
				caller, err := repo.GetCallerByPhone(ctx, args[0])
				if err != nil {
					return err
				}
				if caller == nil {
					return survey.ErrUnknownCaller
				}

				fmt.Printf("%s (%s), age %s\n", caller.FullName(), caller.PhoneNumber, caller.Age)

				records, err := repo.ListRecords(ctx, caller.ID)
				if err != nil {
					return err
				}
				for _, rec := range records {
					answer := "(unanswered)"
					if rec.Answered() {
						answer = *rec.Answer
					}
					fmt.Printf("%d\t%s\t%s\n", rec.ID, rec.Question, answer)
				}
				return nil
			})
		},
	}
}

// withStore opens the repository, runs fn, and closes it again. surveyctl is
// short-lived so every command pays the open cost.
func withStore(dbPath string, fn func(context.Context, store.Repository) error) error {
	repo, err := store.NewSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = repo.Close()
	}()

	return fn(context.Background(), repo)
}

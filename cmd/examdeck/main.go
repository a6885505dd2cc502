package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/examdeck/internal/config"
	"github.com/conorfennell/examdeck/internal/domain"
	"github.com/conorfennell/examdeck/internal/extract"
	"github.com/conorfennell/examdeck/internal/ingest"
	"github.com/conorfennell/examdeck/internal/quiz"
	"github.com/conorfennell/examdeck/internal/resolve"
	"github.com/conorfennell/examdeck/internal/storage"
	"github.com/conorfennell/examdeck/internal/web"
)

const usage = `usage: examdeck [flags] <command> [args]

commands:
  init                 create the database schema
  ingest <file.pdf>    replace the question bank with the questions in a PDF
  next                 print the next question to study
  show <id>            print a question
  answer <id> <letter> record an answer
  stats                print study progress
  serve                run the JSON API`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, usage)
			return
		}
		slog.Error("examdeck failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	// 1. Load configuration
	cfg, args, err := config.Load(args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return errors.New("no command given")
	}

	// 2. Set up logging
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the database
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Initialize(ctx); err != nil {
		return err
	}
	slog.Debug("Database opened", "path", cfg.DBPath)

	// 4. Wire the services
	ingester := ingest.New(extract.PDF{}, db, resolve.New(cfg.AnswerOverrides()), ingest.Options{
		Strategy: ingest.Strategy(cfg.Strategy),
		ReposDir: cfg.ReposDir,
	})
	svc := quiz.NewService(db, nil, nil)

	// 5. Dispatch the command
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		fmt.Fprintf(out, "Initialized %s\n", cfg.DBPath)
		return nil

	case "ingest":
		if len(rest) != 1 {
			return errors.New("usage: examdeck ingest <file.pdf>")
		}
		var report ingest.Report
		if cfg.Repo != "" {
			report, err = ingester.IngestRepo(ctx, cfg.Repo, rest[0])
		} else {
			report, err = ingester.IngestFile(ctx, rest[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d questions from %s (%d parsed, %d skipped, %d duplicates).\n",
			report.Inserted, report.Source, report.Parsed, report.Skipped, report.Duplicates)
		return nil

	case "next":
		q, err := svc.Next(ctx, quiz.Mode(cfg.Mode))
		if errors.Is(err, quiz.ErrNoQuestion) {
			fmt.Fprintln(out, "Nothing to study right now.")
			return nil
		}
		if err != nil {
			return err
		}
		printQuestion(out, q)
		return nil

	case "show":
		id, err := argID(rest, 1)
		if err != nil {
			return err
		}
		q, err := svc.Question(ctx, id)
		if err != nil {
			return err
		}
		printQuestion(out, q)
		return nil

	case "answer":
		id, err := argID(rest, 2)
		if err != nil {
			return err
		}
		res, err := svc.Submit(ctx, id, rest[1])
		if err != nil {
			return err
		}
		if res.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Incorrect. The correct answer is %s. %s\n", res.CorrectAnswer, res.CorrectText)
		}
		if res.Explanation != "" {
			fmt.Fprintf(out, "Explanation: %s\n", res.Explanation)
		}
		if res.Record.NextReview != nil {
			fmt.Fprintf(out, "Next review: %s\n", res.Record.NextReview.Local().Format(time.DateTime))
		}
		return nil

	case "stats":
		p, err := svc.Progress(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Questions: %d\nReviewed:  %d\nDue:       %d\nCorrect:   %d\nIncorrect: %d\n",
			p.Total, p.Reviewed, p.Due, p.Correct, p.Incorrect)
		return nil

	case "serve":
		return serve(ctx, cfg.Addr, web.NewServer(svc, ingester, quiz.Mode(cfg.Mode)))

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func argID(args []string, want int) (int64, error) {
	if len(args) != want {
		if want == 1 {
			return 0, errors.New("usage: examdeck show <id>")
		}
		return 0, errors.New("usage: examdeck answer <id> <letter>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid question id %q", args[0])
	}
	return id, nil
}

func printQuestion(out io.Writer, q *domain.Question) {
	fmt.Fprintf(out, "[%d] Question %d\n%s\n\n", q.ID, q.Number, q.Text)
	for _, o := range q.Options {
		fmt.Fprintf(out, "  %s. %s\n", o.Key, o.Text)
	}
}

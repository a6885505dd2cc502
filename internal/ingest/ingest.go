package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conorfennell/examdeck/internal/domain"
	"github.com/conorfennell/examdeck/internal/extract"
	"github.com/conorfennell/examdeck/internal/fingerprint"
	"github.com/conorfennell/examdeck/internal/gitsource"
	"github.com/conorfennell/examdeck/internal/parser"
	"github.com/conorfennell/examdeck/internal/resolve"
)

// Strategy names a question extraction strategy.
type Strategy string

const (
	// Lines scans line by line and keeps partially filled blocks.
	Lines Strategy = "line"
	// Blocks splits on markers and drops blocks without exactly one answer line.
	Blocks Strategy = "block"
)

// Store is the part of the progress store a reload needs.
type Store interface {
	ReplaceQuestions(ctx context.Context, questions []domain.Question) ([]int64, error)
}

// Options configures an Ingester.
type Options struct {
	Strategy Strategy
	ReposDir string
}

// Report summarizes one reload.
type Report struct {
	Source     string  `json:"source"`
	Parsed     int     `json:"parsed"`
	Inserted   int     `json:"inserted"`
	Skipped    int     `json:"skipped"`
	Duplicates int     `json:"duplicates"`
	IDs        []int64 `json:"ids"`
}

// Ingester replaces the stored questions with the ones found in a document.
type Ingester struct {
	extractor extract.Extractor
	store     Store
	resolver  *resolve.Resolver
	opts      Options
}

// New returns an Ingester. A nil resolver repairs answers without overrides.
func New(extractor extract.Extractor, store Store, resolver *resolve.Resolver, opts Options) *Ingester {
	if resolver == nil {
		resolver = resolve.New(nil)
	}
	if opts.Strategy == "" {
		opts.Strategy = Blocks
	}
	if opts.ReposDir == "" {
		opts.ReposDir = "repos"
	}
	return &Ingester{extractor: extractor, store: store, resolver: resolver, opts: opts}
}

// IngestFile extracts the document at path and reloads the store from it.
// Extraction errors abort the run before the store is touched.
func (in *Ingester) IngestFile(ctx context.Context, path string) (Report, error) {
	text, err := in.extractor.Extract(path)
	if err != nil {
		return Report{Source: path}, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return in.IngestText(ctx, path, text)
}

// IngestRepo fetches a git repository and ingests the document at file inside it.
func (in *Ingester) IngestRepo(ctx context.Context, repoURL, file string) (Report, error) {
	root, err := gitsource.Fetch(ctx, repoURL, in.opts.ReposDir)
	if err != nil {
		return Report{Source: repoURL}, err
	}
	path, err := gitsource.Resolve(root, file)
	if err != nil {
		return Report{Source: repoURL}, err
	}
	return in.IngestFile(ctx, path)
}

// IngestText parses already extracted text and reloads the store from it.
// Questions without a prompt or without any declared or overridden answer are
// skipped; every other question is repaired and stored. The clear and the
// inserts commit together.
func (in *Ingester) IngestText(ctx context.Context, source, text string) (Report, error) {
	report := Report{Source: source}

	var questions []domain.Question
	switch in.opts.Strategy {
	case Lines:
		questions = parser.ParseText(text)
		report.Parsed = len(questions)
	default:
		questions = parser.ParseBlocks(text)
		report.Parsed = parser.CountBlocks(text)
	}

	seen := make(map[string]bool)
	keep := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if reason := in.skipReason(q); reason != "" {
			slog.Debug("Skipping question", "number", q.Number, "reason", reason)
			continue
		}
		q = in.resolver.Resolve(q)
		q.Hash = fingerprint.Hash(q)
		if seen[q.Hash] {
			report.Duplicates++
		}
		seen[q.Hash] = true
		keep = append(keep, q)
	}

	ids, err := in.store.ReplaceQuestions(ctx, keep)
	if err != nil {
		return report, fmt.Errorf("failed to store questions from %s: %w", source, err)
	}
	report.IDs = ids
	report.Inserted = len(ids)
	report.Skipped = report.Parsed - report.Inserted

	if report.Inserted == 0 {
		slog.Warn("No usable questions found, question bank is now empty",
			"source", source,
			"strategy", string(in.opts.Strategy),
			"parsed", report.Parsed,
		)
	}
	slog.Info("ingest complete",
		"source", source,
		"strategy", string(in.opts.Strategy),
		"parsed", report.Parsed,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
	)
	return report, nil
}

// skipReason says why q cannot be stored, or returns "" if it can.
func (in *Ingester) skipReason(q domain.Question) string {
	switch {
	case q.IsEmpty():
		return "empty block"
	case strings.TrimSpace(q.Text) == "":
		return "no prompt"
	case q.CorrectAnswer == "" && !in.resolver.Has(q.Number):
		return "no answer"
	}
	return ""
}

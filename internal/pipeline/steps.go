package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nao1215/packagebot/internal/metrics"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/scanner"
	"github.com/nao1215/packagebot/internal/wiki"
)

// DefaultTitleWindow is how many published titles the duplicate guard remembers.
const DefaultTitleWindow = 8192

// Session is the part of the wiki client the steps drive.
type Session interface {
	Login(ctx context.Context, user, password string) error
	Query(ctx context.Context, title string) (*wiki.PageEditContext, error)
	Create(ctx context.Context, title, content string, ec *wiki.PageEditContext, summary string) error
	Logout(ctx context.Context) error
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoginStep authenticates the wiki session.
type LoginStep struct {
	session  Session
	user     string
	password string
}

// NewLoginStep creates a login step for user.
func NewLoginStep(session Session, user, password string) *LoginStep {
	return &LoginStep{session: session, user: user, password: password}
}

// Name returns the step name.
func (s *LoginStep) Name() string {
	return "login"
}

// Do logs in. Any failure is returned so the run stops before harvesting.
func (s *LoginStep) Do(ctx context.Context, report *model.RunReport) error {
	report.User = s.user
	if err := s.session.Login(ctx, s.user, s.password); err != nil {
		return err
	}
	report.Authenticated = true
	return nil
}

// HarvestStep scans the tree and parses every metadata file on the pool.
type HarvestStep struct {
	fs     billy.Filesystem
	root   string
	pool   *Pool
	logger *slog.Logger
}

// HarvestStepOption configures a HarvestStep.
type HarvestStepOption func(*HarvestStep)

// WithHarvestLogger sets a custom logger for the harvest step.
func WithHarvestLogger(logger *slog.Logger) HarvestStepOption {
	return func(s *HarvestStep) {
		s.logger = logger
	}
}

// NewHarvestStep creates a harvest step scanning root inside fs.
func NewHarvestStep(fs billy.Filesystem, root string, pool *Pool, opts ...HarvestStepOption) *HarvestStep {
	s := &HarvestStep{fs: fs, root: root, pool: pool, logger: discardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *HarvestStep) Name() string {
	return "harvest"
}

// Do collects discoveries, runs the pool and stores the records in report.
func (s *HarvestStep) Do(ctx context.Context, report *model.RunReport) error {
	sc := scanner.New(s.fs,
		scanner.WithLogger(s.logger),
		scanner.WithWarningHandler(func(err *scanner.ScanError) {
			report.ScanWarnings = append(report.ScanWarnings, err.Error())
			metrics.RecordScanWarning()
		}),
	)

	var discoveries []model.Discovery
	for d := range sc.Scan(s.root) {
		if err := ctx.Err(); err != nil {
			return err
		}
		discoveries = append(discoveries, d)
		metrics.RecordDiscovery(d.Kind.String())
	}
	report.Discovered = len(discoveries)
	report.Workers = s.pool.Workers()
	report.Strategy = string(s.pool.Strategy())
	s.logger.Info("scan complete", "discoveries", len(discoveries), "warnings", len(report.ScanWarnings))

	harvest, err := s.pool.Run(ctx, discoveries)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	report.Records = harvest.Records
	report.ParseFailures = harvest.Failures
	for range harvest.Failures {
		metrics.RecordParseFailure()
	}
	for _, rec := range harvest.Records {
		switch rec.(type) {
		case model.Category:
			report.Categories++
		case model.Package:
			report.Packages++
		}
	}
	return nil
}

// PublishStep creates a wiki page for every harvested record that does not
// have one yet.
type PublishStep struct {
	session Session
	logger  *slog.Logger
	window  int
}

// PublishStepOption configures a PublishStep.
type PublishStepOption func(*PublishStep)

// WithPublishLogger sets a custom logger for the publish step.
func WithPublishLogger(logger *slog.Logger) PublishStepOption {
	return func(s *PublishStep) {
		s.logger = logger
	}
}

// WithTitleWindow sets how many titles the duplicate guard remembers.
func WithTitleWindow(n int) PublishStepOption {
	return func(s *PublishStep) {
		if n > 0 {
			s.window = n
		}
	}
}

// NewPublishStep creates a publish step using session.
func NewPublishStep(session Session, opts ...PublishStepOption) *PublishStep {
	s := &PublishStep{session: session, logger: discardLogger(), window: DefaultTitleWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PublishStep) Name() string {
	return "publish"
}

// Do publishes records one at a time, categories first, each group in name
// order. Per-page failures are recorded and publishing moves on. On
// cancellation the remaining records are marked skipped.
func (s *PublishStep) Do(ctx context.Context, report *model.RunReport) error {
	seen, err := lru.New[string, struct{}](s.window)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	records := slices.Clone(report.Records)
	slices.SortStableFunc(records, func(a, b model.Record) int {
		return cmp.Or(cmp.Compare(a.Kind(), b.Kind()), cmp.Compare(a.Key(), b.Key()))
	})

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			for _, rest := range records[i:] {
				s.record(report, pageResult(rest, model.OutcomeSkipped, nil))
			}
			return err
		}
		s.record(report, s.publish(ctx, rec, seen))
	}
	return nil
}

func (s *PublishStep) record(report *model.RunReport, result model.PageResult) {
	report.AddPage(result)
	metrics.RecordPage(result.Kind.String(), result.Outcome.String())
}

func (s *PublishStep) publish(ctx context.Context, rec model.Record, seen *lru.Cache[string, struct{}]) model.PageResult {
	page, err := RenderPage(rec)
	if err != nil {
		s.logger.Warn("cannot render page", "record", rec.Key(), "error", err)
		return pageResult(rec, model.OutcomeFailed, err)
	}
	result := model.PageResult{Title: page.Title, Kind: rec.Kind()}

	if seen.Contains(page.Title) {
		s.logger.Warn("duplicate page title in this run", "title", page.Title, "record", rec.Key())
		result.Outcome = model.OutcomeDuplicate
		return result
	}
	seen.Add(page.Title, struct{}{})

	ec, err := s.session.Query(ctx, page.Title)
	if err != nil {
		if ctx.Err() != nil {
			result.Outcome = model.OutcomeSkipped
			return result
		}
		s.logger.Warn("query failed", "title", page.Title, "error", err)
		result.Outcome = model.OutcomeFailed
		result.Error = err.Error()
		return result
	}
	if ec.Exists {
		s.logger.Info("page exists, leaving it unchanged", "title", page.Title)
		result.Outcome = model.OutcomeExisting
		return result
	}

	err = s.session.Create(ctx, page.Title, page.Content, ec, page.Summary)
	var conflict *wiki.PageConflict
	switch {
	case err == nil:
		s.logger.Info("created page", "title", page.Title)
		result.Outcome = model.OutcomeCreated
	case errors.As(err, &conflict):
		s.logger.Warn("page created concurrently", "title", page.Title, "code", conflict.Code)
		result.Outcome = model.OutcomeConflict
		result.Error = err.Error()
	case ctx.Err() != nil:
		result.Outcome = model.OutcomeSkipped
	default:
		s.logger.Warn("create failed", "title", page.Title, "error", err)
		result.Outcome = model.OutcomeFailed
		result.Error = err.Error()
	}
	return result
}

// pageResult builds a result for a record without talking to the wiki.
func pageResult(rec model.Record, outcome model.Outcome, err error) model.PageResult {
	result := model.PageResult{Title: rec.Key(), Kind: rec.Kind(), Outcome: outcome}
	if page, renderErr := RenderPage(rec); renderErr == nil {
		result.Title = page.Title
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// LogoutStep ends the wiki session.
type LogoutStep struct {
	session Session
	logger  *slog.Logger
}

// NewLogoutStep creates a logout step.
func NewLogoutStep(session Session, logger *slog.Logger) *LogoutStep {
	if logger == nil {
		logger = discardLogger()
	}
	return &LogoutStep{session: session, logger: logger}
}

// Name returns the step name.
func (s *LogoutStep) Name() string {
	return "logout"
}

// Do logs out. Failures are logged and never fail the run.
func (s *LogoutStep) Do(ctx context.Context, _ *model.RunReport) error {
	if err := s.session.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	return nil
}

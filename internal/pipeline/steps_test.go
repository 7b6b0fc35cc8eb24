package pipeline

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/packagebot/internal/metadata"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/wiki"
)

// fakeSession records every call and answers from fixed tables.
type fakeSession struct {
	loginErr  error
	logoutErr error
	existing  map[string]bool
	queryErr  map[string]error
	createErr map[string]error
	// onQuery runs before each query answer.
	onQuery func(title string)

	calls   []string
	created map[string]string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		existing:  map[string]bool{},
		queryErr:  map[string]error{},
		createErr: map[string]error{},
		created:   map[string]string{},
	}
}

func (f *fakeSession) Login(_ context.Context, user, _ string) error {
	f.calls = append(f.calls, "login:"+user)
	return f.loginErr
}

func (f *fakeSession) Query(_ context.Context, title string) (*wiki.PageEditContext, error) {
	f.calls = append(f.calls, "query:"+title)
	if f.onQuery != nil {
		f.onQuery(title)
	}
	if err := f.queryErr[title]; err != nil {
		return nil, err
	}
	return &wiki.PageEditContext{
		Title:          title,
		EditToken:      "token",
		StartTimestamp: "2026-10-16T00:00:00Z",
		Exists:         f.existing[title],
	}, nil
}

func (f *fakeSession) Create(_ context.Context, title, content string, ec *wiki.PageEditContext, _ string) error {
	f.calls = append(f.calls, "create:"+title)
	if ec.Exists {
		return wiki.ErrPageExists
	}
	if err := f.createErr[title]; err != nil {
		return err
	}
	f.created[title] = content
	return nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.calls = append(f.calls, "logout")
	return f.logoutErr
}

func (f *fakeSession) callsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, strings.TrimPrefix(c, prefix))
		}
	}
	return out
}

func newRun(session Session, harvest *HarvestStep) *Pipeline {
	p := New()
	p.AddSteps(
		NewLoginStep(session, "bot", "secret"),
		harvest,
		NewPublishStep(session),
		NewLogoutStep(session, nil),
	)
	return p
}

func outcomes(report *model.RunReport) map[string]model.Outcome {
	out := map[string]model.Outcome{}
	for _, p := range report.Pages {
		out[p.Title] = p.Outcome
	}
	return out
}

func TestRunPublishesMissingPages(t *testing.T) {
	t.Parallel()

	fs := writeTree(t, map[string][]string{
		"cat-a": {"pkg-1"},
		"cat-b": nil,
	})
	session := newFakeSession()
	session.existing["Category:cat-b"] = true

	pool := NewPool(metadata.NewLoader(fs), WithWorkers(2))
	report := model.NewRunReport("/", "http://wiki")

	if err := newRun(session, NewHarvestStep(fs, "/", pool)).Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]model.Outcome{
		"Category:cat-a": model.OutcomeCreated,
		"Category:cat-b": model.OutcomeExisting,
		"cat-a/pkg-1":    model.OutcomeCreated,
	}
	got := outcomes(report)
	if len(got) != len(want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	for title, o := range want {
		if got[title] != o {
			t.Errorf("%s: got %v, expected %v", title, got[title], o)
		}
	}

	if creates := session.callsWithPrefix("create:"); slices.Contains(creates, "Category:cat-b") {
		t.Error("create must not be called for an existing page")
	}
	if session.created["Category:cat-a"] != "{{PortageCategory|description=<nowiki>cat-a category</nowiki>}}" {
		t.Errorf("unexpected content %q", session.created["Category:cat-a"])
	}

	// every create follows a query for the same title
	for i, c := range session.calls {
		if title, ok := strings.CutPrefix(c, "create:"); ok {
			if i == 0 || session.calls[i-1] != "query:"+title {
				t.Errorf("create of %s was not preceded by its query", title)
			}
		}
	}

	if !report.Authenticated || report.Discovered != 3 || report.Categories != 2 || report.Packages != 1 {
		t.Errorf("unexpected report counters: %+v", report)
	}
	if !slices.Equal(report.PerformedSteps, []string{"login", "harvest", "publish", "logout"}) {
		t.Errorf("got steps %v", report.PerformedSteps)
	}
	if session.calls[len(session.calls)-1] != "logout" {
		t.Error("expected logout to be the last call")
	}
	if !report.Succeeded() {
		t.Errorf("expected run to succeed: %s", report.ErrorMessage)
	}
}

func TestRunLoginFailureSkipsHarvest(t *testing.T) {
	t.Parallel()

	fs := writeTree(t, map[string][]string{"cat-a": {"pkg-1"}})
	session := newFakeSession()
	session.loginErr = &wiki.LoginFailure{Code: "WrongPass", Attempts: 1}

	pool := NewPool(metadata.NewLoader(fs))
	report := model.NewRunReport("/", "http://wiki")

	err := newRun(session, NewHarvestStep(fs, "/", pool)).Execute(context.Background(), report)

	var failure *wiki.LoginFailure
	if !errors.As(err, &failure) || failure.Code != "WrongPass" {
		t.Fatalf("got %v, expected login failure", err)
	}
	if report.Discovered != 0 || len(report.Records) != 0 {
		t.Error("expected nothing to be harvested after a failed login")
	}
	if !slices.Equal(session.calls, []string{"login:bot"}) {
		t.Errorf("got calls %v, expected only the login", session.calls)
	}
	if report.Authenticated {
		t.Error("expected report not to be authenticated")
	}
}

func TestPublishOutcomes(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.createErr["Category:raced"] = &wiki.PageConflict{Title: "Category:raced", Code: "articleexists"}
	session.createErr["Category:broken"] = &wiki.NetworkError{Action: "edit", StatusCode: 502, Err: errors.New("bad gateway")}
	session.queryErr["Category:unreachable"] = &wiki.NetworkError{Action: "query", Err: errors.New("timeout")}

	report := model.NewRunReport("/", "http://wiki")
	report.Records = []model.Record{
		model.Category{Name: "raced"},
		model.Category{Name: "broken"},
		model.Category{Name: "unreachable"},
		model.Category{Name: "fine"},
		model.Category{Name: "bad|name"},
	}

	if err := NewPublishStep(session).Do(context.Background(), report); err != nil {
		t.Fatalf("per-page errors must not fail the step: %v", err)
	}

	got := outcomes(report)
	want := map[string]model.Outcome{
		"Category:raced":       model.OutcomeConflict,
		"Category:broken":      model.OutcomeFailed,
		"Category:unreachable": model.OutcomeFailed,
		"Category:fine":        model.OutcomeCreated,
		"bad|name":             model.OutcomeFailed,
	}
	for title, o := range want {
		if got[title] != o {
			t.Errorf("%s: got %v, expected %v", title, got[title], o)
		}
	}
	if creates := session.callsWithPrefix("create:"); slices.Contains(creates, "Category:unreachable") {
		t.Error("create must not follow a failed query")
	}
}

func TestPublishOrder(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	report := model.NewRunReport("/", "http://wiki")
	report.Records = []model.Record{
		model.Package{Name: "b", CategoryName: "cat"},
		model.Category{Name: "zeta"},
		model.Package{Name: "a", CategoryName: "cat"},
		model.Category{Name: "alpha"},
	}

	if err := NewPublishStep(session).Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Category:alpha", "Category:zeta", "cat/a", "cat/b"}
	if got := session.callsWithPrefix("query:"); !slices.Equal(got, want) {
		t.Errorf("got %v, expected %v", got, want)
	}
}

func TestPublishDuplicateTitles(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	report := model.NewRunReport("/", "http://wiki")
	// two nested directories named "files" under the same category map to
	// the same title
	report.Records = []model.Record{
		model.Package{Name: "files", CategoryName: "cat-a"},
		model.Package{Name: "files", CategoryName: "cat-a"},
	}

	if err := NewPublishStep(session).Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := session.callsWithPrefix("query:"); len(got) != 1 {
		t.Errorf("got %d queries, expected 1", len(got))
	}
	if report.CountOutcome(model.OutcomeDuplicate) != 1 || report.CountOutcome(model.OutcomeCreated) != 1 {
		t.Errorf("unexpected outcomes: %+v", report.Pages)
	}
}

func TestPublishCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newFakeSession()
	session.onQuery = func(string) { cancel() }

	report := model.NewRunReport("/", "http://wiki")
	report.Records = []model.Record{
		model.Category{Name: "a"},
		model.Category{Name: "b"},
		model.Category{Name: "c"},
	}

	err := NewPublishStep(session).Do(ctx, report)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, expected context.Canceled", err)
	}
	if len(report.Pages) != 3 {
		t.Fatalf("got %d page results, expected 3", len(report.Pages))
	}
	if report.CountOutcome(model.OutcomeSkipped) != 2 {
		t.Errorf("expected two skipped pages: %+v", report.Pages)
	}
}

func TestPublishCancelledMidCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(f *fakeSession, cancel context.CancelFunc)
	}{
		{
			name: "during query",
			setup: func(f *fakeSession, cancel context.CancelFunc) {
				f.onQuery = func(string) { cancel() }
				f.queryErr["Category:a"] = context.Canceled
			},
		},
		{
			name: "during create",
			setup: func(f *fakeSession, cancel context.CancelFunc) {
				f.onQuery = func(string) { cancel() }
				f.createErr["Category:a"] = context.Canceled
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			session := newFakeSession()
			tt.setup(session, cancel)

			report := model.NewRunReport("/", "http://wiki")
			report.Records = []model.Record{
				model.Category{Name: "a"},
				model.Category{Name: "b"},
			}

			if err := NewPublishStep(session).Do(ctx, report); !errors.Is(err, context.Canceled) {
				t.Fatalf("got %v, expected context.Canceled", err)
			}
			if got := report.CountOutcome(model.OutcomeFailed); got != 0 {
				t.Errorf("got %d failed pages, expected none: %+v", got, report.Pages)
			}
			if got := report.CountOutcome(model.OutcomeSkipped); got != 2 {
				t.Errorf("got %d skipped pages, expected 2: %+v", got, report.Pages)
			}
		})
	}
}

func TestLogoutStepIgnoresFailure(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.logoutErr = errors.New("connection reset")

	if err := NewLogoutStep(session, nil).Do(context.Background(), model.NewRunReport("/", "http://wiki")); err != nil {
		t.Errorf("logout failure must not fail the run: %v", err)
	}
}

func TestHarvestStepRecordsProblems(t *testing.T) {
	t.Parallel()

	fs := writeTree(t, map[string][]string{"cat-a": {"pkg-1", "pkg-2"}})
	if err := fs.Remove("/cat-a/pkg-2/metadata.xml"); err != nil {
		t.Fatalf("failed to remove metadata: %v", err)
	}
	f, err := fs.Create("/cat-a/pkg-2/metadata.xml")
	if err != nil {
		t.Fatalf("failed to create metadata: %v", err)
	}
	_, _ = f.Write([]byte("not xml"))
	_ = f.Close()

	report := model.NewRunReport("/", "http://wiki")
	pool := NewPool(metadata.NewLoader(fs), WithWorkers(3), WithStrategy(StrategyPartition))
	if err := NewHarvestStep(fs, "/", pool).Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Discovered != 3 || report.Categories != 1 || report.Packages != 1 {
		t.Errorf("unexpected counters: discovered=%d categories=%d packages=%d",
			report.Discovered, report.Categories, report.Packages)
	}
	if len(report.ParseFailures) != 1 {
		t.Errorf("got %d parse failures, expected 1", len(report.ParseFailures))
	}
	if report.Workers != 3 || report.Strategy != "partition" {
		t.Errorf("got workers=%d strategy=%q", report.Workers, report.Strategy)
	}
}

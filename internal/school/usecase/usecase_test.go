package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/schoolhub/schoolhub/internal/pkg/config"
	"github.com/schoolhub/schoolhub/internal/pkg/goerror"
	"github.com/schoolhub/schoolhub/internal/pkg/goroutine"
	"github.com/schoolhub/schoolhub/internal/pkg/idempotency"
	"github.com/schoolhub/schoolhub/internal/pkg/instrument"
	"github.com/schoolhub/schoolhub/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub/internal/pkg/validator"
	"github.com/schoolhub/schoolhub/internal/school/outbound/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Millisecond)

	return c.now
}

type countingUID struct {
	mu   sync.Mutex
	next int64
}

func (c *countingUID) Generate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next++

	return c.next
}

type seqUUID struct {
	mu   sync.Mutex
	next int
}

func (s *seqUUID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++

	return fmt.Sprintf("uuid-%d", s.next)
}

type fakeMedia struct {
	mu       sync.Mutex
	uploads  []string
	removed  []string
	failNext bool
}

func (f *fakeMedia) Upload(_ context.Context, key string, _ io.Reader, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext {
		f.failNext = false
		return "", errors.New("bucket unavailable")
	}

	f.uploads = append(f.uploads, key)

	return "https://cdn.test/" + key, nil
}

func (f *fakeMedia) Remove(_ context.Context, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, imageURL)

	return nil
}

type fakeMQ struct {
	mu     sync.Mutex
	events []SchoolChangedEvent
}

func (f *fakeMQ) PublishSchoolChanged(_ context.Context, msg SchoolChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, msg)

	return nil
}

type fakeIdemp struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeIdemp) Exec(ctx context.Context, key string, fn func(context.Context) error) error {
	f.mu.Lock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		f.mu.Unlock()
		return idempotency.ErrAlreadyCompleted
	}
	f.seen[key] = true
	f.mu.Unlock()

	return fn(ctx)
}

func newTestEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()

	const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		t.Fatalf("NewModelFromString: %v", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	if _, err := e.AddPolicies([][]string{
		{"user", "schools", "create"},
		{"admin", "*", "*"},
	}); err != nil {
		t.Fatalf("AddPolicies: %v", err)
	}

	return e
}

type fixture struct {
	uc    *Usecase
	store *memory.Store
	media *fakeMedia
	mq    *fakeMQ
	rt    *goroutine.Manager
}

func newFixture(t *testing.T, idemp idempotency.Idempotency) *fixture {
	t.Helper()

	clk := &fakeClock{now: time.Now()}
	media := &fakeMedia{}
	mq := &fakeMQ{}
	store := memory.NewStore(&countingUID{}, clk)

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator: %v", err)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  school: {}\n"))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	rt := goroutine.NewManager(8)

	uc := New(Dependency{
		RepoDB:        store,
		RepoMedia:     media,
		RepoMessaging: mq,
		Idempotency:   idemp,
		Validator:     v,
		Config:        cfg,
		Enforcer:      newTestEnforcer(t),
		UUID:          &seqUUID{},
		Instrument:    instrument.NewNoop(),
		Goroutine:     rt,
	})

	return &fixture{uc: uc, store: store, media: media, mq: mq, rt: rt}
}

func authedCtx(userID int64, role string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		UserID:    userID,
		UserEmail: fmt.Sprintf("user%d@example.com", userID),
		UserRole:  role,
	})
}

func createInput(name, email string) SchoolCreateInput {
	return SchoolCreateInput{
		Name:             name,
		Email:            email,
		Contact:          "0812345678",
		Address:          "1 Main Street",
		City:             "Springfield",
		State:            "Illinois",
		Image:            strings.NewReader("png-bytes"),
		ImageContentType: "image/png",
	}
}

func errCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected goerror.Error, got %v", err)
	}

	return gerr.Code()
}

func TestSchoolCreate(t *testing.T) {
	t.Run("CreatesSchoolAndPublishes", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		ctx := authedCtx(7, "user")

		// Act
		created, err := f.uc.SchoolCreate(ctx, createInput("Springfield High", "Office@SpringfieldHigh.edu"))

		// Assert
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}
		if created.ID == 0 {
			t.Fatalf("expected assigned ID")
		}
		if created.Email != "office@springfieldhigh.edu" {
			t.Fatalf("email should be normalized, got %q", created.Email)
		}
		if created.CreatedBy != 7 {
			t.Fatalf("expected CreatedBy 7, got %d", created.CreatedBy)
		}
		if !strings.HasPrefix(created.ImageURL, "https://cdn.test/schools/7/springfield-high-") {
			t.Fatalf("unexpected image URL %q", created.ImageURL)
		}

		if err := f.rt.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if len(f.mq.events) != 1 || f.mq.events[0].Action != "created" {
			t.Fatalf("expected one created event, got %+v", f.mq.events)
		}
	})

	t.Run("RequiresAuthentication", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)

		// Act
		_, err := f.uc.SchoolCreate(context.Background(), createInput("Springfield High", "office@sh.edu"))

		// Assert
		if code := errCode(t, err); code != goerror.CodeUnauthorized {
			t.Fatalf("expected unauthorized, got %v", code)
		}
	})

	t.Run("RejectsUnsupportedImageType", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		in := createInput("Springfield High", "office@sh.edu")
		in.ImageContentType = "image/gif"

		// Act
		_, err := f.uc.SchoolCreate(authedCtx(7, "user"), in)

		// Assert
		if err == nil {
			t.Fatalf("expected error for unsupported content type")
		}
	})

	t.Run("DuplicateEmailConflictsAndRemovesImage", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		ctx := authedCtx(7, "user")
		if _, err := f.uc.SchoolCreate(ctx, createInput("First School", "office@sh.edu")); err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		_, err := f.uc.SchoolCreate(ctx, createInput("Second School", "OFFICE@sh.edu"))

		// Assert
		if code := errCode(t, err); code != goerror.CodeConflict {
			t.Fatalf("expected conflict, got %v", code)
		}

		if err := f.rt.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if len(f.media.removed) != 1 {
			t.Fatalf("orphaned image should be removed, got %v", f.media.removed)
		}
	})

	t.Run("DuplicateSubmitIsRejected", func(t *testing.T) {
		// Arrange
		f := newFixture(t, &fakeIdemp{})
		ctx := authedCtx(7, "user")
		in := createInput("Springfield High", "office@sh.edu")
		in.IdempotencyKey = "form-abc"
		if _, err := f.uc.SchoolCreate(ctx, in); err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		retry := createInput("Springfield High", "other@sh.edu")
		retry.IdempotencyKey = "form-abc"
		_, err := f.uc.SchoolCreate(ctx, retry)

		// Assert
		if code := errCode(t, err); code != goerror.CodeConflict {
			t.Fatalf("expected conflict on duplicate submit, got %v", code)
		}
	})
}

func TestSchoolList(t *testing.T) {
	seed := func(t *testing.T, f *fixture) {
		t.Helper()

		ctx := authedCtx(7, "user")
		for i, s := range []struct{ name, email, city string }{
			{"Alpha Academy", "a@sh.edu", "Springfield"},
			{"Beta College", "b@sh.edu", "Shelbyville"},
			{"Gamma School", "c@sh.edu", "Springfield"},
		} {
			in := createInput(s.name, s.email)
			in.City = s.city
			if _, err := f.uc.SchoolCreate(ctx, in); err != nil {
				t.Fatalf("seed %d: %v", i, err)
			}
		}
	}

	t.Run("FiltersByCity", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		seed(t, f)

		// Act
		out, err := f.uc.SchoolList(context.Background(), SchoolListInput{City: "springfield"})

		// Assert
		if err != nil {
			t.Fatalf("SchoolList: %v", err)
		}
		if out.Total != 2 || len(out.Schools) != 2 {
			t.Fatalf("expected 2 matches, got total=%d len=%d", out.Total, len(out.Schools))
		}
	})

	t.Run("SearchMatchesName", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		seed(t, f)

		// Act
		out, err := f.uc.SchoolList(context.Background(), SchoolListInput{Search: "beta"})

		// Assert
		if err != nil {
			t.Fatalf("SchoolList: %v", err)
		}
		if out.Total != 1 || out.Schools[0].Name != "Beta College" {
			t.Fatalf("unexpected result %+v", out.Schools)
		}
	})

	t.Run("PagesNewestFirst", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		seed(t, f)

		// Act
		page, err := f.uc.SchoolList(context.Background(), SchoolListInput{Limit: 2})

		// Assert
		if err != nil {
			t.Fatalf("SchoolList: %v", err)
		}
		if page.Total != 3 || len(page.Schools) != 2 {
			t.Fatalf("expected total 3 with page of 2, got total=%d len=%d", page.Total, len(page.Schools))
		}
		if page.Schools[0].Name != "Gamma School" {
			t.Fatalf("expected newest first, got %q", page.Schools[0].Name)
		}

		rest, err := f.uc.SchoolList(context.Background(), SchoolListInput{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("SchoolList: %v", err)
		}
		if len(rest.Schools) != 1 || rest.Schools[0].Name != "Alpha Academy" {
			t.Fatalf("unexpected second page %+v", rest.Schools)
		}
	})

	t.Run("ClampsLimit", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)

		// Act
		out, err := f.uc.SchoolList(context.Background(), SchoolListInput{Limit: 9999, Offset: -5})

		// Assert
		if err != nil {
			t.Fatalf("SchoolList: %v", err)
		}
		if out.Limit != 100 || out.Offset != 0 {
			t.Fatalf("expected clamped paging, got limit=%d offset=%d", out.Limit, out.Offset)
		}
	})
}

func TestSchoolGet(t *testing.T) {
	t.Run("ReturnsSchool", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		created, err := f.uc.SchoolCreate(authedCtx(7, "user"), createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		got, err := f.uc.SchoolGet(context.Background(), SchoolGetInput{ID: created.ID})

		// Assert
		if err != nil {
			t.Fatalf("SchoolGet: %v", err)
		}
		if got.Name != "Springfield High" {
			t.Fatalf("unexpected school %+v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)

		// Act
		_, err := f.uc.SchoolGet(context.Background(), SchoolGetInput{ID: 424242})

		// Assert
		if code := errCode(t, err); code != goerror.CodeNotFound {
			t.Fatalf("expected not found, got %v", code)
		}
	})
}

func TestSchoolUpdate(t *testing.T) {
	updateInput := func(id int64) SchoolUpdateInput {
		return SchoolUpdateInput{
			ID:      id,
			Name:    "Renamed School",
			Email:   "renamed@sh.edu",
			Contact: "0812345678",
			Address: "2 Side Street",
			City:    "Springfield",
			State:   "Illinois",
		}
	}

	t.Run("OwnerCanEdit", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		ctx := authedCtx(7, "user")
		created, err := f.uc.SchoolCreate(ctx, createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		updated, err := f.uc.SchoolUpdate(ctx, updateInput(created.ID))

		// Assert
		if err != nil {
			t.Fatalf("SchoolUpdate: %v", err)
		}
		if updated.Name != "Renamed School" || updated.ImageURL != created.ImageURL {
			t.Fatalf("unexpected update %+v", updated)
		}
	})

	t.Run("NonOwnerUserForbidden", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		created, err := f.uc.SchoolCreate(authedCtx(7, "user"), createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		_, err = f.uc.SchoolUpdate(authedCtx(8, "user"), updateInput(created.ID))

		// Assert
		if code := errCode(t, err); code != goerror.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", code)
		}
	})

	t.Run("AdminCanEditAnySchool", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		created, err := f.uc.SchoolCreate(authedCtx(7, "user"), createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		updated, err := f.uc.SchoolUpdate(authedCtx(1, "admin"), updateInput(created.ID))

		// Assert
		if err != nil {
			t.Fatalf("SchoolUpdate: %v", err)
		}
		if updated.Name != "Renamed School" {
			t.Fatalf("unexpected update %+v", updated)
		}
	})

	t.Run("NewImageReplacesOldOne", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		ctx := authedCtx(7, "user")
		created, err := f.uc.SchoolCreate(ctx, createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		in := updateInput(created.ID)
		in.Image = strings.NewReader("new-bytes")
		in.ImageContentType = "image/jpeg"

		// Act
		updated, err := f.uc.SchoolUpdate(ctx, in)

		// Assert
		if err != nil {
			t.Fatalf("SchoolUpdate: %v", err)
		}
		if updated.ImageURL == created.ImageURL {
			t.Fatalf("expected a new image URL")
		}

		if err := f.rt.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		removedOld := false
		for _, u := range f.media.removed {
			if u == created.ImageURL {
				removedOld = true
			}
		}
		if !removedOld {
			t.Fatalf("old image should be removed, got %v", f.media.removed)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)

		// Act
		_, err := f.uc.SchoolUpdate(authedCtx(7, "user"), updateInput(424242))

		// Assert
		if code := errCode(t, err); code != goerror.CodeNotFound {
			t.Fatalf("expected not found, got %v", code)
		}
	})
}

func TestSchoolDelete(t *testing.T) {
	t.Run("AdminDeletesAndCleansUp", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		created, err := f.uc.SchoolCreate(authedCtx(7, "user"), createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		err = f.uc.SchoolDelete(authedCtx(1, "admin"), SchoolDeleteInput{ID: created.ID})

		// Assert
		if err != nil {
			t.Fatalf("SchoolDelete: %v", err)
		}
		if _, err := f.uc.SchoolGet(context.Background(), SchoolGetInput{ID: created.ID}); err == nil {
			t.Fatalf("school should be gone")
		}

		if err := f.rt.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if len(f.media.removed) != 1 || f.media.removed[0] != created.ImageURL {
			t.Fatalf("image should be removed, got %v", f.media.removed)
		}
		last := f.mq.events[len(f.mq.events)-1]
		if last.Action != "deleted" || last.SchoolID != created.ID {
			t.Fatalf("expected deleted event, got %+v", last)
		}
	})

	t.Run("RegularUserForbidden", func(t *testing.T) {
		// Arrange
		f := newFixture(t, nil)
		created, err := f.uc.SchoolCreate(authedCtx(7, "user"), createInput("Springfield High", "office@sh.edu"))
		if err != nil {
			t.Fatalf("SchoolCreate: %v", err)
		}

		// Act
		err = f.uc.SchoolDelete(authedCtx(7, "user"), SchoolDeleteInput{ID: created.ID})

		// Assert
		if code := errCode(t, err); code != goerror.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", code)
		}
	})
}

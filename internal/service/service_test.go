package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/weather-todo/internal/auth"
	"github.com/iliyamo/weather-todo/internal/model"
	"github.com/iliyamo/weather-todo/internal/paging"
	"github.com/iliyamo/weather-todo/internal/query"
	"github.com/iliyamo/weather-todo/internal/queue"
	"github.com/iliyamo/weather-todo/internal/repository"
	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

var quiet = log.New(io.Discard)

func testIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	key, err := auth.LoadSigningKey(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return auth.NewIssuer(key)
}

type stubWeather struct {
	label string
	err   error
}

func (s stubWeather) TodayWeather(context.Context) (string, error) { return s.label, s.err }

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.TodoCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishTodoCreated(_ context.Context, ev queue.TodoCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestSignupAndSignin(t *testing.T) {
	ctx := context.Background()
	issuer := testIssuer(t)
	svc := NewAuthService(repository.NewMemoryUserStore(), issuer, bcrypt.MinCost, quiet)

	sess, err := svc.Signup(ctx, SignupInput{Email: "a@b.com", Password: "pw", Nickname: "nick", UserRole: "admin"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !strings.HasPrefix(sess.Token.Bearer, auth.BearerPrefix) {
		t.Errorf("token missing prefix: %q", sess.Token.Bearer)
	}
	id, err := issuer.Authenticate(sess.Token.Bearer)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.SubjectID != sess.User.ID || id.Role != model.RoleAdmin || id.Nickname != "nick" {
		t.Errorf("unexpected identity %+v", id)
	}
	if sess.User.PasswordHash == "pw" {
		t.Error("password stored in plain text")
	}

	in, err := svc.Signin(ctx, "A@B.com", "pw")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if in.User.ID != sess.User.ID {
		t.Errorf("signin resolved user %d, want %d", in.User.ID, sess.User.ID)
	}
}

func TestSignupDefaultsRoleToUser(t *testing.T) {
	svc := NewAuthService(repository.NewMemoryUserStore(), testIssuer(t), bcrypt.MinCost, quiet)
	sess, err := svc.Signup(context.Background(), SignupInput{Email: "a@b.com", Password: "pw", Nickname: "nick"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if sess.User.Role != model.RoleUser {
		t.Errorf("role %q, want USER", sess.User.Role)
	}
}

func TestSignupRejects(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(repository.NewMemoryUserStore(), testIssuer(t), bcrypt.MinCost, quiet)
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@b.com", Password: "pw", Nickname: "nick"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	cases := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"bad email", SignupInput{Email: "nope", Password: "pw", Nickname: "nick"}, apperrors.ErrInvalidInput},
		{"blank password", SignupInput{Email: "c@d.com", Password: " ", Nickname: "nick"}, apperrors.ErrInvalidInput},
		{"short nickname", SignupInput{Email: "c@d.com", Password: "pw", Nickname: "n"}, apperrors.ErrInvalidInput},
		{"long nickname", SignupInput{Email: "c@d.com", Password: "pw", Nickname: "ninechars"}, apperrors.ErrInvalidInput},
		{"unknown role", SignupInput{Email: "c@d.com", Password: "pw", Nickname: "nick", UserRole: "ROOT"}, apperrors.ErrInvalidInput},
		{"duplicate", SignupInput{Email: "A@b.com", Password: "pw", Nickname: "nick"}, apperrors.ErrUserAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Signup(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

// countingUsers records how often Create is reached.
type countingUsers struct {
	*repository.MemoryUserStore
	creates   int
	existsErr error
}

func (u *countingUsers) Create(ctx context.Context, d model.UserDraft) (model.User, error) {
	u.creates++
	return u.MemoryUserStore.Create(ctx, d)
}

func (u *countingUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if u.existsErr != nil {
		return false, u.existsErr
	}
	return u.MemoryUserStore.ExistsByEmail(ctx, email)
}

func TestSignupChecksEmailBeforeCreate(t *testing.T) {
	ctx := context.Background()
	users := &countingUsers{MemoryUserStore: repository.NewMemoryUserStore()}
	svc := NewAuthService(users, testIssuer(t), bcrypt.MinCost, quiet)

	if _, err := svc.Signup(ctx, SignupInput{Email: "a@b.com", Password: "pw", Nickname: "nick"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "A@B.com", Password: "pw", Nickname: "nick"}); !errors.Is(err, apperrors.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if users.creates != 1 {
		t.Errorf("duplicate reached Create: %d calls", users.creates)
	}

	users.existsErr = apperrors.Store("count users", errors.New("conn refused"))
	if _, err := svc.Signup(ctx, SignupInput{Email: "c@d.com", Password: "pw", Nickname: "nick"}); !errors.Is(err, apperrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if users.creates != 1 {
		t.Errorf("Create called after a failed lookup: %d calls", users.creates)
	}
}

func TestSigninFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(repository.NewMemoryUserStore(), testIssuer(t), bcrypt.MinCost, quiet)
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@b.com", Password: "pw", Nickname: "nick"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, wrongPw := svc.Signin(ctx, "a@b.com", "nope")
	_, unknown := svc.Signin(ctx, "x@y.com", "pw")
	if !errors.Is(wrongPw, apperrors.ErrInvalidCredentials) || !errors.Is(unknown, apperrors.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPw, unknown)
	}
}

func newTodoFixture(t *testing.T, w WeatherSource, pub EventPublisher) (*TodoService, *repository.MemoryTodoStore) {
	t.Helper()
	store := repository.NewMemoryTodoStore(nil)
	return NewTodoService(store, w, pub, quiet), store
}

func TestCreateStampsWeatherAndOwner(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTodoFixture(t, stubWeather{label: "Sunny"}, pub)
	id := auth.Identity{SubjectID: 7, Email: "a@b.com", Role: model.RoleUser}

	td, err := svc.Create(context.Background(), id, "  buy milk ", "2L")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if td.Title != "buy milk" || td.Weather != "Sunny" || td.OwnerID != 7 || td.OwnerEmail != "a@b.com" {
		t.Errorf("unexpected todo %+v", td)
	}
	if len(pub.events) != 1 || pub.events[0].TodoID != td.ID || pub.events[0].Weather != "Sunny" {
		t.Errorf("unexpected events %+v", pub.events)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	svc, _ := newTodoFixture(t, stubWeather{label: "Sunny"}, &recordingPublisher{err: errors.New("broker down")})
	if _, err := svc.Create(context.Background(), auth.Identity{SubjectID: 1}, "t", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestCreateFailsWithoutWeather(t *testing.T) {
	svc, store := newTodoFixture(t, stubWeather{err: apperrors.ErrWeatherUnavailable}, nil)
	_, err := svc.Create(context.Background(), auth.Identity{SubjectID: 1}, "t", "")
	if !errors.Is(err, apperrors.ErrWeatherUnavailable) {
		t.Fatalf("expected ErrWeatherUnavailable, got %v", err)
	}
	p, _ := paging.Fetch[model.Todo](context.Background(), store, query.Owner(1), paging.Request{Page: 1, Size: 10})
	if p.Total != 0 {
		t.Errorf("todo stored despite weather failure")
	}
}

func TestGetOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTodoFixture(t, stubWeather{label: "Sunny"}, nil)
	alice := auth.Identity{SubjectID: 1, Role: model.RoleUser}
	bob := auth.Identity{SubjectID: 2, Role: model.RoleAdmin}

	td, err := svc.Create(ctx, alice, "private", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, err := svc.Get(ctx, alice, td.ID); err != nil || got.ID != td.ID {
		t.Fatalf("owner get: %+v %v", got, err)
	}

	_, foreign := svc.Get(ctx, bob, td.ID)
	_, missing := svc.Get(ctx, bob, td.ID+1000)
	if !errors.Is(foreign, apperrors.ErrRecordNotFound) || !errors.Is(missing, apperrors.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound for both, got %v / %v", foreign, missing)
	}

	p, err := svc.List(ctx, bob, paging.Request{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Total != 0 || len(p.Items) != 0 {
		t.Errorf("bob sees alice's todos: %+v", p)
	}
}

func TestSearchFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryTodoStore(nil)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, w := range []string{"Sunny", "Rainy", "Sunny", "Sunny"} {
		store.Clock = func() time.Time { return base.Add(time.Duration(i) * 24 * time.Hour) }
		if _, err := store.Save(ctx, model.TodoDraft{Title: w, Weather: w, OwnerID: 3}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	svc := NewTodoService(store, stubWeather{}, nil, quiet)
	id := auth.Identity{SubjectID: 3}

	start := base.Add(24 * time.Hour)
	p, err := svc.Search(ctx, id, query.Filter{Weather: "Sunny", Start: &start}, paging.Request{Page: 1, Size: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if p.Total != 2 || len(p.Items) != 1 || p.TotalPages() != 2 {
		t.Errorf("unexpected page %+v", p)
	}
	if !p.Items[0].ModifiedAt.Equal(base.Add(72 * time.Hour)) {
		t.Errorf("newest first violated: %v", p.Items[0].ModifiedAt)
	}

	if _, err := svc.Search(ctx, id, query.Filter{}, paging.Request{Page: 0, Size: 10}); !errors.Is(err, apperrors.ErrInvalidPageRequest) {
		t.Errorf("expected ErrInvalidPageRequest, got %v", err)
	}
	if _, err := svc.Search(ctx, auth.Identity{}, query.Filter{}, paging.Request{Page: 1, Size: 10}); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

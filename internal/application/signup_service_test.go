package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/testfixtures"
)

var (
	testNow   = time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)
	testStart = time.Date(2024, time.March, 6, 17, 30, 0, 0, time.UTC)
)

func newTestSignupService(store *storeStub, rec *recorderStub) *SignupService {
	ids := 0
	var mu sync.Mutex
	return NewSignupService(SignupServiceConfig{
		Events:  store,
		Signups: store,
		Hash:    fastHash,
		IDGenerator: func() string {
			mu.Lock()
			defer mu.Unlock()
			ids++
			return "signup-" + string(rune('0'+ids))
		},
		Now:     func() time.Time { return testNow },
		Metrics: rec,
	})
}

func TestSignupService_Signup(t *testing.T) {
	t.Parallel()

	t.Run("stores a normalized nickname and a hash", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		rec := &recorderStub{}
		svc := newTestSignupService(store, rec)

		got, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "  Anna   Maria ", Password: "secret"})
		if err != nil {
			t.Fatalf("Signup returned error: %v", err)
		}
		if got.Nickname != "Anna Maria" || got.ID != "signup-1" || !got.Timestamp.Equal(testNow) {
			t.Fatalf("unexpected signup %+v", got)
		}

		stored, err := store.FindSignup(context.Background(), "event-1", "Anna Maria")
		if err != nil {
			t.Fatalf("expected stored signup: %v", err)
		}
		if stored.PasswordHash == "secret" {
			t.Fatalf("password stored in clear text")
		}
		if err := VerifyPassword(stored.PasswordHash, "secret"); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
		if rec.actions["signup/ok"] != 1 {
			t.Fatalf("expected one successful signup observation, got %v", rec.actions)
		}
	})

	t.Run("rejects invalid input before touching the store", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.getEventErr = errors.New("must not be called")
		svc := newTestSignupService(store, &recorderStub{})

		_, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "a", Password: "xy"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["nickname"] == "" || vErr.FieldErrors["password"] == "" {
			t.Fatalf("expected both fields to be reported, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects inactive, started and unknown events", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("closed", testStart, false)
		store.addEvent("started", testNow.Add(-time.Minute), true)
		svc := newTestSignupService(store, &recorderStub{})

		for _, id := range []string{"closed", "started", "missing"} {
			_, err := svc.Signup(context.Background(), SignupParams{EventID: id, Nickname: "anna", Password: "secret"})
			if !errors.Is(err, ErrNoActiveEvent) {
				t.Fatalf("%s: expected ErrNoActiveEvent, got %v", id, err)
			}
		}
		if store.createCalls != 0 {
			t.Fatalf("expected no inserts, got %d", store.createCalls)
		}
	})

	t.Run("rejects a taken nickname", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		svc := newTestSignupService(store, &recorderStub{})

		params := SignupParams{EventID: "event-1", Nickname: "anna", Password: "secret"}
		if _, err := svc.Signup(context.Background(), params); err != nil {
			t.Fatalf("first Signup returned error: %v", err)
		}
		if _, err := svc.Signup(context.Background(), params); !errors.Is(err, ErrDuplicateNickname) {
			t.Fatalf("expected ErrDuplicateNickname, got %v", err)
		}
	})

	t.Run("maps a lost insert race to ErrDuplicateNickname", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		store.hideSignups = true
		svc := newTestSignupService(store, &recorderStub{})

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "anna", Password: "secret"})
			}(i)
		}
		wg.Wait()

		succeeded, duplicates := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrDuplicateNickname):
				duplicates++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if succeeded != 1 || duplicates != 1 {
			t.Fatalf("expected one success and one duplicate, got %d and %d", succeeded, duplicates)
		}
		if store.signupCount("event-1") != 1 {
			t.Fatalf("expected exactly one stored signup")
		}
	})

	t.Run("surfaces store timeouts as ErrStoreUnavailable", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.getEventErr = persistence.ErrUnavailable
		svc := newTestSignupService(store, &recorderStub{})

		_, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "anna", Password: "secret"})
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
		if msg := UserMessage(err); msg != "Something went wrong. Please try again later." {
			t.Fatalf("expected generic message, got %q", msg)
		}
	})

	t.Run("rate limits per session", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		rec := &recorderStub{}
		svc := newTestSignupService(store, rec)
		limiter := NewLimiter(map[ActionKind]RateLimit{ActionSignup: {MaxAttempts: 2, Window: time.Minute}}, func() time.Time { return testNow })

		for _, nick := range []string{"anna", "bartek"} {
			if _, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: nick, Password: "secret", Limiter: limiter}); err != nil {
				t.Fatalf("Signup(%s) returned error: %v", nick, err)
			}
		}
		_, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "celina", Password: "secret", Limiter: limiter})
		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) || !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rlErr.CooldownSeconds() != 60 {
			t.Fatalf("expected 60s cooldown, got %v", rlErr.Cooldown)
		}
		if rec.actions["signup/rate_limited"] != 1 {
			t.Fatalf("expected rate limited observation, got %v", rec.actions)
		}

		// Another session is unaffected.
		if _, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "celina", Password: "secret"}); err != nil {
			t.Fatalf("expected a fresh session to be allowed, got %v", err)
		}
	})
}

func TestSignupService_Signout(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (*storeStub, *SignupService) {
		t.Helper()
		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		svc := newTestSignupService(store, &recorderStub{})
		if _, err := svc.Signup(context.Background(), SignupParams{EventID: "event-1", Nickname: "anna", Password: "secret"}); err != nil {
			t.Fatalf("Signup returned error: %v", err)
		}
		return store, svc
	}

	t.Run("signup then signout leaves no record", func(t *testing.T) {
		t.Parallel()

		store, svc := setup(t)
		if err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: " anna ", Password: "secret"}); err != nil {
			t.Fatalf("Signout returned error: %v", err)
		}
		if store.signupCount("event-1") != 0 {
			t.Fatalf("expected no signups left")
		}
	})

	t.Run("wrong password never deletes", func(t *testing.T) {
		t.Parallel()

		store, svc := setup(t)
		err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: "anna", Password: "wrong"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if store.deleteCalls != 0 || store.signupCount("event-1") != 1 {
			t.Fatalf("expected the signup to remain")
		}
	})

	t.Run("unknown nickname", func(t *testing.T) {
		t.Parallel()

		_, svc := setup(t)
		err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: "bartek", Password: "secret"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("works after the event closed", func(t *testing.T) {
		t.Parallel()

		store, svc := setup(t)
		store.addEvent("event-1", testStart, false)
		if err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: "anna", Password: "secret"}); err != nil {
			t.Fatalf("Signout returned error: %v", err)
		}
	})

	t.Run("accepts legacy bcrypt hashes", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		store.signups["legacy"] = persistence.Signup{
			ID:       "legacy",
			EventID:  "event-1",
			Nickname: "kuba",
			// bcrypt of "secret" at cost 4.
			PasswordHash: legacyBcryptHash(t, "secret"),
			Timestamp:    testNow,
		}
		svc := newTestSignupService(store, &recorderStub{})

		if err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: "kuba", Password: "secret"}); err != nil {
			t.Fatalf("Signout returned error: %v", err)
		}
	})

	t.Run("stored nickname outside current rules", func(t *testing.T) {
		t.Parallel()

		store := newStoreStub()
		store.addEvent("event-1", testStart, true)
		hash, err := fastHash("pw")
		if err != nil {
			t.Fatalf("hash returned error: %v", err)
		}
		store.signups["legacy"] = persistence.Signup{
			ID:           "legacy",
			EventID:      "event-1",
			Nickname:     "admin",
			PasswordHash: hash,
			Timestamp:    testNow,
		}
		svc := newTestSignupService(store, &recorderStub{})

		if err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: " admin ", Password: "pw"}); err != nil {
			t.Fatalf("Signout returned error: %v", err)
		}
		if store.signupCount("event-1") != 0 {
			t.Fatalf("expected the legacy signup to be removed")
		}
	})

	t.Run("empty nickname is rejected before lookup", func(t *testing.T) {
		t.Parallel()

		_, svc := setup(t)
		err := svc.Signout(context.Background(), SignupParams{EventID: "event-1", Nickname: "  ", Password: "secret"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["nickname"] == "" {
			t.Fatalf("expected nickname validation error, got %v", err)
		}
	})
}

func TestSignupService_DefaultIDsOnSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := testfixtures.NewSQLiteStore(t, time.UTC)
	event := testfixtures.NewEventFixture().Persistence()
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	svc := NewSignupService(SignupServiceConfig{
		Events:  store,
		Signups: store,
		Hash:    fastHash,
		Now:     testfixtures.ReferenceTime,
	})

	ids := make(map[string]struct{})
	for _, nickname := range []string{"anna", "bartek"} {
		signup, err := svc.Signup(ctx, SignupParams{EventID: event.ID, Nickname: nickname, Password: "secret"})
		if err != nil {
			t.Fatalf("Signup(%q) returned error: %v", nickname, err)
		}
		if signup.ID == "" {
			t.Fatalf("expected a generated id for %q", nickname)
		}
		ids[signup.ID] = struct{}{}
	}
	if len(ids) != 2 {
		t.Fatalf("expected distinct ids, got %v", ids)
	}

	stored, err := store.ListSignups(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListSignups returned error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored signups, got %d", len(stored))
	}
}

func TestSignupService_Lists(t *testing.T) {
	t.Parallel()

	store := newStoreStub()
	store.addEvent("soon", testStart, true)
	store.addEvent("later", testStart.AddDate(0, 0, 7), false)
	store.addEvent("stale", testNow.Add(-time.Hour), true)
	svc := newTestSignupService(store, &recorderStub{})

	events, err := svc.ActiveEvents(context.Background())
	if err != nil {
		t.Fatalf("ActiveEvents returned error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "soon" {
		t.Fatalf("expected only the open upcoming event, got %+v", events)
	}

	store.signups["b"] = persistence.Signup{ID: "b", EventID: "soon", Nickname: "second", Timestamp: testNow.Add(time.Minute)}
	store.signups["a"] = persistence.Signup{ID: "a", EventID: "soon", Nickname: "first", Timestamp: testNow}
	signups, err := svc.ListSignups(context.Background(), "soon")
	if err != nil {
		t.Fatalf("ListSignups returned error: %v", err)
	}
	if len(signups) != 2 || signups[0].Nickname != "first" {
		t.Fatalf("expected timestamp order, got %+v", signups)
	}

	store.listEventsErr = persistence.ErrUnavailable
	if _, err := svc.ActiveEvents(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSignupService_NilReceiver(t *testing.T) {
	t.Parallel()

	var svc *SignupService
	if _, err := svc.Signup(context.Background(), SignupParams{}); err == nil {
		t.Fatalf("expected error from nil service")
	}
}

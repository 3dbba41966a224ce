package fallback

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSpec(p Policy) Spec {
	return Spec{
		Capability: "test",
		Policy:     p,
		Sleep:      func(context.Context, time.Duration) error { return nil },
	}
}

func TestRun_FallbackOrdering(t *testing.T) {
	t.Parallel()

	var calls []string
	prov := func(name string, err error) Provider[string] {
		return Provider[string]{
			Name: name,
			Call: func(context.Context) (string, error) {
				calls = append(calls, name)
				if err != nil {
					return "", err
				}
				return name + "-result", nil
			},
		}
	}

	res, err := Run(context.Background(), testSpec(Policy{MaxRetries: 1}),
		[]Provider[string]{
			prov("a", Permanent(errors.New("boom"))),
			prov("b", Permanent(errors.New("boom"))),
			prov("c", nil),
			prov("d", nil),
		},
		nil,
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Provider != "c" || res.Value != "c-result" {
		t.Fatalf("expected provider c to win, got %q (%q)", res.Provider, res.Value)
	}
	want := []string{"a", "b", "c"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, calls)
		}
	}
}

func TestRun_TransientRetriesThenNextProvider(t *testing.T) {
	t.Parallel()

	paidCalls, freeCalls := 0, 0
	timeout := Transient(errors.New("timeout"))

	res, err := Run(context.Background(), testSpec(Policy{MaxRetries: 2, BaseWait: time.Millisecond}),
		[]Provider[string]{
			{Name: "paid", Call: func(context.Context) (string, error) {
				paidCalls++
				return "", timeout
			}},
			{Name: "free", Call: func(context.Context) (string, error) {
				freeCalls++
				return "ok", nil
			}},
		},
		nil,
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if paidCalls != 2 {
		t.Fatalf("expected exactly 2 attempts against paid provider, got %d", paidCalls)
	}
	if freeCalls != 1 {
		t.Fatalf("expected 1 attempt against free provider, got %d", freeCalls)
	}
	if res.Provider != "free" {
		t.Fatalf("expected free provider to win, got %q", res.Provider)
	}
}

func TestRun_PermanentSkipsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Run(context.Background(), testSpec(Policy{MaxRetries: 5}),
		[]Provider[int]{
			{Name: "auth-broken", Call: func(context.Context) (int, error) {
				calls++
				return 0, Permanent(errors.New("invalid credentials"))
			}},
		},
		func(context.Context) (int, error) { return 42, nil },
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent error must not be retried, got %d calls", calls)
	}
}

func TestRun_LocalFallback(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), testSpec(Policy{MaxRetries: 1}),
		[]Provider[string]{
			{Name: "down", Call: func(context.Context) (string, error) {
				return "", Transient(errors.New("503"))
			}},
		},
		func(context.Context) (string, error) { return "template", nil },
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Fallback || res.Value != "template" {
		t.Fatalf("expected local fallback result, got %+v", res)
	}
}

func TestRun_NoLocalFallbackSurfacesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("no clips")
	_, err := Run(context.Background(), testSpec(Policy{MaxRetries: 1}),
		[]Provider[string]{
			{Name: "only", Call: func(context.Context) (string, error) {
				return "", Permanent(wantErr)
			}},
		},
		nil,
	)
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestBackoff_Monotonic(t *testing.T) {
	t.Parallel()

	p := Policy{BaseWait: time.Second, MaxWait: 30 * time.Second}
	prev := time.Duration(0)
	for k := 0; k < 8; k++ {
		w := Backoff(p, k)
		if w < prev {
			t.Fatalf("backoff decreased at attempt %d: %v < %v", k, w, prev)
		}
		prev = w
	}
	if got := Backoff(p, 10); got != 30*time.Second {
		t.Fatalf("expected cap at 30s, got %v", got)
	}
	if got := Backoff(p, 2); got != 4*time.Second {
		t.Fatalf("expected 4s at attempt 2, got %v", got)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testSpec(Policy{MaxRetries: 3}),
		[]Provider[string]{{Name: "any", Call: func(context.Context) (string, error) {
			t.Fatal("provider must not be called after cancellation")
			return "", nil
		}}},
		nil,
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClassOf(t *testing.T) {
	t.Parallel()

	if ClassOf(errors.New("plain")) != ClassTransient {
		t.Fatal("unclassified errors should be transient")
	}
	if ClassOf(Permanent(errors.New("x"))) != ClassPermanent {
		t.Fatal("permanent wrapper lost")
	}
	if ClassOf(FromHTTPStatus(429, "slow down")) != ClassTransient {
		t.Fatal("429 should be transient")
	}
	if ClassOf(FromHTTPStatus(502, "bad gateway")) != ClassTransient {
		t.Fatal("5xx should be transient")
	}
	if ClassOf(FromHTTPStatus(401, "no")) != ClassPermanent {
		t.Fatal("401 should be permanent")
	}
	if ClassOf(context.Canceled) != ClassPermanent {
		t.Fatal("cancellation must not be retried")
	}
}

// Package fallback runs one capability against an ordered provider
// chain: each provider gets bounded retries with exponential backoff,
// permanent errors skip ahead, and a deterministic local fallback
// guarantees the caller always receives some result.
package fallback

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/youssefehap082-gif/kids-ai-channel-sub000/config"
)

// Policy bounds the retry loop for one capability.
type Policy struct {
	MaxRetries int           // attempts per provider
	BaseWait   time.Duration // backoff base
	MaxWait    time.Duration // backoff ceiling
	Jitter     float64       // fraction of the wait randomised, e.g. 0.3
}

// PolicyFrom converts a config retry block into a Policy.
func PolicyFrom(rc config.RetryConfig) Policy {
	return Policy{
		MaxRetries: rc.MaxRetries,
		BaseWait:   time.Duration(rc.BaseWaitSec * float64(time.Second)),
		MaxWait:    time.Duration(rc.MaxWaitSec * float64(time.Second)),
		Jitter:     rc.Jitter,
	}
}

// Provider is one entry in a capability's fallback chain.
type Provider[T any] struct {
	Name string
	Call func(ctx context.Context) (T, error)
}

// Local is the deterministic fallback invoked after the whole chain is
// exhausted. It must not perform network I/O.
type Local[T any] func(ctx context.Context) (T, error)

// Result carries the winning payload and which provider produced it.
type Result[T any] struct {
	Value    T
	Provider string
	Fallback bool // true when the local fallback produced the value
}

// Spec names the capability and carries its policy. Sleep is
// overridable for tests; nil means a real context-aware sleep.
type Spec struct {
	Capability string
	Policy     Policy
	Sleep      func(context.Context, time.Duration) error
	Rand       *rand.Rand
}

// Backoff returns the wait before retry attempt k (0-based) under p,
// before jitter: BaseWait * 2^k, capped at MaxWait. Non-decreasing
// in k.
func Backoff(p Policy, attempt int) time.Duration {
	wait := time.Duration(float64(p.BaseWait) * math.Pow(2, float64(attempt)))
	if p.MaxWait > 0 && wait > p.MaxWait {
		wait = p.MaxWait
	}
	return wait
}

// Run tries each provider in order with bounded retries and backoff,
// returning the first success. When every provider is exhausted the
// local fallback supplies the result; the pipeline never halts just
// because every remote provider is degraded. The error return is
// non-nil only when the local fallback itself fails (or is nil).
func Run[T any](ctx context.Context, spec Spec, providers []Provider[T], local Local[T]) (Result[T], error) {
	sleep := spec.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	retries := spec.Policy.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for _, p := range providers {
		for attempt := 0; attempt < retries; attempt++ {
			if err := ctx.Err(); err != nil {
				return Result[T]{}, err
			}
			value, err := p.Call(ctx)
			if err == nil {
				log.Printf("[fallback] %s: provider %q succeeded (attempt %d)", spec.Capability, p.Name, attempt+1)
				return Result[T]{Value: value, Provider: p.Name}, nil
			}
			lastErr = err
			if ClassOf(err) == ClassPermanent {
				log.Printf("[fallback] %s: provider %q permanent failure: %v — trying next provider", spec.Capability, p.Name, err)
				break
			}
			log.Printf("[fallback] %s: provider %q attempt %d failed: %v", spec.Capability, p.Name, attempt+1, err)
			if attempt+1 < retries {
				if err := sleep(ctx, jittered(spec, Backoff(spec.Policy, attempt))); err != nil {
					return Result[T]{}, err
				}
			}
		}
	}

	if local == nil {
		return Result[T]{}, fmt.Errorf("%s: all %d providers exhausted: %w", spec.Capability, len(providers), lastErr)
	}
	value, err := local(ctx)
	if err != nil {
		return Result[T]{}, fmt.Errorf("%s: local fallback after exhausted providers: %w", spec.Capability, err)
	}
	log.Printf("[fallback] %s: all providers exhausted — using local fallback (last error: %v)", spec.Capability, lastErr)
	return Result[T]{Value: value, Provider: "local-fallback", Fallback: true}, nil
}

// jittered randomises wait by ±Policy.Jitter to avoid synchronized
// retry storms against rate-limited services.
func jittered(spec Spec, wait time.Duration) time.Duration {
	if spec.Policy.Jitter <= 0 || wait <= 0 {
		return wait
	}
	r := spec.Rand
	factor := 1.0
	if r != nil {
		factor = 1 + spec.Policy.Jitter*(2*r.Float64()-1)
	} else {
		factor = 1 + spec.Policy.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(float64(wait) * factor)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

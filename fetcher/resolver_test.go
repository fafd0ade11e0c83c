package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/vahanfetch/models"
)

func candList(n int) []models.SelectorCandidate {
	cands := make([]models.SelectorCandidate, n)
	for i := range cands {
		cands[i] = models.SelectorCandidate{Kind: models.ByCSS, Expr: fmt.Sprintf("#cand-%d", i)}
	}
	return cands
}

func TestResolveOrderedFirstHitWins(t *testing.T) {
	want := &fakeElement{}
	sess := &scriptedSession{
		onFind: func(_ models.SelectorKind, expr string) (Element, error) {
			if expr == "#cand-0" {
				return want, nil
			}
			return nil, models.ErrNotFound
		},
	}

	el, err := resolveOrdered(context.Background(), sess, candList(3), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("resolveOrdered() error = %v", err)
	}
	if el != want {
		t.Fatalf("resolveOrdered() returned wrong element")
	}
	if len(sess.finds) != 1 {
		t.Fatalf("Find called %d times, want 1 (later candidates must not be tried)", len(sess.finds))
	}
}

func TestResolveOrderedFallsThroughInOrder(t *testing.T) {
	sess := &scriptedSession{
		onFind: func(_ models.SelectorKind, expr string) (Element, error) {
			if expr == "#cand-2" {
				return &fakeElement{}, nil
			}
			return nil, fmt.Errorf("%w: wait exhausted", models.ErrNotFound)
		},
	}

	if _, err := resolveOrdered(context.Background(), sess, candList(4), 10*time.Millisecond); err != nil {
		t.Fatalf("resolveOrdered() error = %v", err)
	}

	want := []string{"#cand-0", "#cand-1", "#cand-2"}
	if len(sess.finds) != len(want) {
		t.Fatalf("Find calls = %v, want %v", sess.finds, want)
	}
	for i, expr := range want {
		if sess.finds[i] != expr {
			t.Errorf("find[%d] = %q, want %q", i, sess.finds[i], expr)
		}
	}
}

func TestResolveOrderedExhaustedReturnsNotFound(t *testing.T) {
	sess := &scriptedSession{} // every Find reports not found

	_, err := resolveOrdered(context.Background(), sess, candList(3), 10*time.Millisecond)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("resolveOrdered() error = %v, want ErrNotFound", err)
	}
	if len(sess.finds) != 3 {
		t.Fatalf("Find called %d times, want 3 (every candidate gets its own budget)", len(sess.finds))
	}
}

func TestResolveOrderedSessionFaultShortCircuits(t *testing.T) {
	fault := errors.New("websocket: connection reset")
	sess := &scriptedSession{
		onFind: func(_ models.SelectorKind, expr string) (Element, error) {
			if expr == "#cand-1" {
				return nil, fault
			}
			return nil, models.ErrNotFound
		},
	}

	_, err := resolveOrdered(context.Background(), sess, candList(4), 10*time.Millisecond)
	if !errors.Is(err, fault) {
		t.Fatalf("resolveOrdered() error = %v, want the raw session fault", err)
	}
	if errors.Is(err, models.ErrNotFound) {
		t.Fatal("session fault must not be classed as not-found")
	}
	if len(sess.finds) != 2 {
		t.Fatalf("Find called %d times, want 2 (fault stops the walk)", len(sess.finds))
	}
}

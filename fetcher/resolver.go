package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/vahanfetch/models"
)

// resolveOrdered walks candidates in priority order, giving each its own
// independent wait budget; exhausting one candidate's wait does not consume
// time from the next. Returns the first element that becomes interactable,
// models.ErrNotFound when the whole list is exhausted, or the raw error on a
// session fault. No retries here: retrying resolution is the cycle's job,
// with a fresh page load.
func resolveOrdered(ctx context.Context, sess Session, cands []models.SelectorCandidate, per time.Duration) (Element, error) {
	for _, cand := range cands {
		el, err := sess.Find(ctx, cand.Kind, cand.Expr, per)
		if err == nil {
			return el, nil
		}
		if errors.Is(err, models.ErrNotFound) {
			slog.Debug("candidate exhausted", "kind", cand.Kind, "expr", cand.Expr)
			continue
		}
		return nil, err
	}
	return nil, models.ErrNotFound
}

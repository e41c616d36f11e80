package debate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/signalboard/sigdebate/internal/models"
)

// SignalResolver answers whether a signal identifier is known.
// The store implementations satisfy this.
type SignalResolver interface {
	HasSignal(ctx context.Context, id string) (bool, error)
}

// Ledger validates the source references a message cites. A citation is
// either a signal identifier resolvable against the signal registry or a
// well-formed absolute http(s) URL.
type Ledger struct {
	signals SignalResolver
}

// NewLedger creates a citation ledger. A nil resolver skips registry
// lookups and accepts any syntactically valid signal id.
func NewLedger(signals SignalResolver) *Ledger {
	return &Ledger{signals: signals}
}

// ParseCitation classifies a raw citation string as a signal reference or
// a URL. Signal ids must carry the sig: prefix; anything else is treated
// as a URL candidate.
func ParseCitation(raw string) (models.Citation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Citation{}, fmt.Errorf("%w: empty citation", ErrInvalidCitation)
	}
	if strings.HasPrefix(raw, models.SignalIDPrefix) {
		return models.Citation{Kind: models.CitationSignal, Value: raw}, nil
	}
	return models.Citation{Kind: models.CitationURL, Value: raw}, nil
}

// Validate checks every citation in the slice, in order. The first invalid
// citation fails the whole set; nothing is silently dropped.
func (l *Ledger) Validate(ctx context.Context, citations []models.Citation) error {
	for _, c := range citations {
		switch c.Kind {
		case models.CitationSignal:
			if err := l.validateSignal(ctx, c.Value); err != nil {
				return err
			}
		case models.CitationURL:
			if err := validateURL(c.Value); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown citation kind %q", ErrInvalidCitation, c.Kind)
		}
	}
	return nil
}

func (l *Ledger) validateSignal(ctx context.Context, id string) error {
	if _, _, err := models.ParseSignalID(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCitation, err)
	}
	if l.signals == nil {
		return nil
	}
	known, err := l.signals.HasSignal(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve signal %q: %w", id, err)
	}
	if !known {
		return fmt.Errorf("%w: unknown signal %q", ErrInvalidCitation, id)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCitation, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: not an absolute http(s) url: %q", ErrInvalidCitation, raw)
	}
	return nil
}

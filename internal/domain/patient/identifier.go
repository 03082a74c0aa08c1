package patient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/clinic/clinic/internal/platform/errs"
)

// allocAttempts bounds identifier-collision retries before giving up.
const allocAttempts = 3

// Allocator hands out sequential patient identifiers of the form
// P-<year>-<seq>, where seq is zero-padded to at least three digits.
// The sequence continues across calendar years: the year segment of a
// new identifier always reflects the current year, but the numeric
// suffix picks up from the most recently created patient regardless of
// which year that identifier carries.
type Allocator struct {
	mu       sync.Mutex
	repo     Repository
	seqStart int
	now      func() time.Time
}

func NewAllocator(repo Repository, seqStart int) *Allocator {
	if seqStart < 1 {
		seqStart = 1
	}
	return &Allocator{
		repo:     repo,
		seqStart: seqStart,
		now:      time.Now,
	}
}

// Allocate generates the next identifier and runs persist with it while
// holding the allocator lock, so concurrent in-process registrations
// never observe the same sequence value. A Conflict from persist means
// another process claimed the identifier first; allocation is retried a
// bounded number of times before giving up with a Conflict.
func (a *Allocator) Allocate(ctx context.Context, persist func(identifier string) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for attempt := 0; attempt < allocAttempts; attempt++ {
		identifier, err := a.next(ctx)
		if err != nil {
			return err
		}
		err = persist(identifier)
		if err == nil {
			return nil
		}
		if errs.IsConflict(err) {
			continue
		}
		return err
	}
	return errs.Conflict("could not allocate a unique patient identifier")
}

// Next returns the next identifier in sequence without persisting it.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next(ctx)
}

func (a *Allocator) next(ctx context.Context) (string, error) {
	last, err := a.repo.LastIdentifier(ctx)
	if err != nil {
		return "", errs.IdentifierGeneration("reading last identifier", err)
	}

	seq := a.seqStart
	if last != "" {
		n, err := parseSequence(last)
		if err != nil {
			return "", errs.IdentifierGeneration(fmt.Sprintf("unparsable identifier %q", last), err)
		}
		seq = n + 1
	}

	return fmt.Sprintf("P-%d-%03d", a.now().Year(), seq), nil
}

// parseSequence extracts the numeric suffix from an identifier.
func parseSequence(identifier string) (int, error) {
	idx := strings.LastIndex(identifier, "-")
	if idx < 0 || idx == len(identifier)-1 {
		return 0, fmt.Errorf("no sequence segment in %q", identifier)
	}
	n, err := strconv.Atoi(identifier[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("sequence segment of %q: %w", identifier, err)
	}
	return n, nil
}

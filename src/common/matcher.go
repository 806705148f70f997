package common

import (
	"errors"
	"log"
	"strings"
	"summit/src/models"
	"summit/src/types"
	"time"
)

type MatchResult struct {
	Verified bool
	Pass     *models.Pass
}

// matchStrategy is one entry of the ordered candidate search. applies
// gates the strategy on the identifiers present in the claim; find runs
// the store lookup. Precedence lives entirely in the strategies slice.
type matchStrategy struct {
	name    string
	applies func(c *models.PendingClaim) bool
	find    func(s Store, c *models.PendingClaim) (*models.Pass, error)
}

var strategies = []matchStrategy{
	{
		name:    "booking_ref",
		applies: func(c *models.PendingClaim) bool { return c.BookingRef != "" },
		find: func(s Store, c *models.PendingClaim) (*models.Pass, error) {
			return s.FindPassByBookingRef(c.BookingRef)
		},
	},
	{
		name:    "order_ref",
		applies: func(c *models.PendingClaim) bool { return c.OrderRef != "" },
		find: func(s Store, c *models.PendingClaim) (*models.Pass, error) {
			return s.FindPassByOrderRef(c.OrderRef)
		},
	},
	{
		name:    "ticket_no",
		applies: func(c *models.PendingClaim) bool { return c.TicketNo != "" },
		find: func(s Store, c *models.PendingClaim) (*models.Pass, error) {
			return s.FindPassByTicketNo(c.TicketNo)
		},
	},
	{
		name:    "qr_payload",
		applies: func(c *models.PendingClaim) bool { return c.QRPayload != "" },
		find: func(s Store, c *models.PendingClaim) (*models.Pass, error) {
			return s.FindPassByQRPayload(c.QRPayload)
		},
	},
}

// Matcher searches the pass store for the record backing a claim and
// settles ownership. It is safe to re-run on a resolved claim.
type Matcher struct {
	store Store
	now   Clock
}

func NewMatcher(store Store, now Clock) *Matcher {
	if now == nil {
		now = time.Now
	}
	return &Matcher{store: store, now: now}
}

// Match attempts to resolve the claim. The first strategy whose
// identifier is present is also the last word: a candidate that fails the
// ownership check is a final unresolved, never a cue to try the next
// strategy. Returned errors are transient store failures only; "no pass
// found" and "someone else's pass" are unresolved results, not errors.
func (m *Matcher) Match(claim *models.PendingClaim) (*MatchResult, error) {
	if claim.Status == types.CLAIM_VERIFIED && claim.PassID != nil {
		pass, err := m.store.FindPass(*claim.PassID)
		if err != nil {
			return nil, err
		}
		return &MatchResult{Verified: true, Pass: pass}, nil
	}

	candidate, err := m.findCandidate(claim)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return &MatchResult{Verified: false}, nil
	}

	if candidate.UserID == claim.UserID {
		if err := m.store.VerifyClaim(claim.ID, candidate.ID, nil, m.now()); err != nil {
			return nil, err
		}
		return &MatchResult{Verified: true, Pass: candidate}, nil
	}

	owner, err := m.store.FindUserByID(candidate.UserID)
	if err != nil {
		return nil, err
	}
	if claim.Email != "" && strings.EqualFold(owner.Email, claim.Email) {
		// Same person under a new external identity: move the pass over.
		if err := m.store.VerifyClaim(claim.ID, candidate.ID, &claim.UserID, m.now()); err != nil {
			return nil, err
		}
		candidate.UserID = claim.UserID
		return &MatchResult{Verified: true, Pass: candidate}, nil
	}

	log.Printf("[audit] claim %d by user %d matched pass %d owned by user %d with different email; leaving unresolved\n",
		claim.ID, claim.UserID, candidate.ID, candidate.UserID)
	return &MatchResult{Verified: false}, nil
}

// findCandidate runs the strategy search without writing anything. A nil
// pass with a nil error means no strategy produced a candidate.
func (m *Matcher) findCandidate(claim *models.PendingClaim) (*models.Pass, error) {
	for _, strat := range strategies {
		if !strat.applies(claim) {
			continue
		}
		pass, err := strat.find(m.store, claim)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return pass, nil
	}
	return nil, nil
}

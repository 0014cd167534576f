/*
resolver.go - History chain resolution

PURPOSE:
  Given a player and a candidate date, determine which club the player
  belongs to immediately before that date. This derived club becomes the
  source ("from") club of a new event and the basis of the same-club
  rejection rule.

THE LOAN RULE:
  A loan is a reversible secondment - the club of record does not change
  while the player is loaned out. So when the most recent prior event is
  a LOAN, resolution returns the loan PARENT, not the loan destination.
  The display layer still shows the loan destination as "currently at";
  only chaining looks through the loan.

SINGLE LOOKUP:
  Resolution is one most-recent-preceding-row query plus a conditional,
  never a walk over the full history. Ties at an identical date go to
  the last-inserted event, since the chain is a single linear sequence
  per player and insertion order is trusted.
*/
package transfer

import (
	"context"

	"github.com/google/uuid"
)

// ResolveSourceClub returns the player's club of record immediately at
// or before the candidate date, or nil if the player has no prior
// history (new player, free agent).
func ResolveSourceClub(ctx context.Context, store Store, playerID uuid.UUID, date Date) (*uuid.UUID, error) {
	prev, err := store.LatestEventBefore(ctx, playerID, date)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	return prev.ChainClubID(), nil
}

// ResolveCurrentClubs returns both views of "current club" as of a
// date: the club of record (chain view, loan-parent during a loan) and
// the club the player is physically at (display view, loan destination
// during a loan). Both are nil for a player with no history.
func ResolveCurrentClubs(ctx context.Context, store Store, playerID uuid.UUID, date Date) (record, display *uuid.UUID, err error) {
	prev, err := store.LatestEventBefore(ctx, playerID, date)
	if err != nil {
		return nil, nil, err
	}
	if prev == nil {
		return nil, nil, nil
	}
	return prev.ChainClubID(), prev.DisplayClubID(), nil
}

// sameClub reports whether two nullable club references point at the
// same club. A nil on either side is never "the same".
func sameClub(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

/*
reconcile.go - Invitation reconciliation against the generated schedule

PURPOSE:
  Computes the delta between desired state (occurrences x audience) and the
  invitations that already exist, and returns only the missing ones. The
  operation performs no I/O; the caller persists the returned list.

IDEMPOTENCE:
  Reconciliation is invoked on every event view rather than by a scheduler.
  Re-running with an unchanged occurrence set and unchanged existing
  invitations yields an empty create-list, so a lost race or a partially
  persisted batch is repaired by the next pass. This pull-based contract is
  deliberate; do not bolt a background scheduler onto it.

FAILURE SEMANTICS:
  Partial persistence of the returned list is acceptable. A create that
  collides with a concurrently created invitation is discarded by the
  store; the missing remainder is re-proposed next time.
*/
package schedule

import "time"

// Reconcile returns the invitations that are missing for the cross-product
// of occurrences x targetUserIDs, given the invitations that already exist
// for the event. Each missing pair becomes a pending invitation stamped
// with now. Output order is occurrence-major, then target order.
func Reconcile(eventID string, occurrences []Date, targetUserIDs []string, existing []Invitation, now time.Time) []Invitation {
	if len(occurrences) == 0 || len(targetUserIDs) == 0 {
		return nil
	}

	have := make(map[InvitationKey]struct{}, len(existing))
	for _, inv := range existing {
		have[inv.Key()] = struct{}{}
	}

	var creates []Invitation
	for _, occ := range occurrences {
		for _, userID := range targetUserIDs {
			key := InvitationKey{EventID: eventID, UserID: userID, Date: occ.String()}
			if _, ok := have[key]; ok {
				continue
			}
			// Mark the key so a duplicated target id proposes one create.
			have[key] = struct{}{}
			creates = append(creates, Invitation{
				EventID:   eventID,
				UserID:    userID,
				Date:      occ,
				Status:    InvitePending,
				CreatedAt: now,
			})
		}
	}
	return creates
}

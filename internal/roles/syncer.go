package roles

import "context"

// Syncer reconciles an owner's linked-role set to exactly match a target
// name set. Removals and additions are committed together or not at all.
type Syncer struct {
	repo Repository
}

// NewSyncer constructs a Syncer.
func NewSyncer(repo Repository) *Syncer {
	return &Syncer{repo: repo}
}

// Sync makes the owner's effective role set equal the target set, regardless
// of the starting set. The owner row is locked for the duration of the
// transaction so concurrent syncs for the same owner serialize; a repeated
// call with the same target is a no-op.
func (s *Syncer) Sync(ctx context.Context, owner Owner, targetNames []string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.LockOwner(ctx, owner); err != nil {
			return err
		}

		current, err := tx.CurrentRoleNames(ctx, owner)
		if err != nil {
			return err
		}

		adds, removes := Diff(current, targetNames)

		if len(removes) > 0 {
			if err := tx.RemoveLinksByName(ctx, owner, removes); err != nil {
				return err
			}
		}

		if len(adds) > 0 {
			resolved, err := NewRegistry(tx).ResolveOrCreate(ctx, adds)
			if err != nil {
				return err
			}
			roleIDs := make([]int64, len(resolved))
			for i, role := range resolved {
				roleIDs[i] = role.ID
			}
			if err := tx.AddLinks(ctx, owner, roleIDs); err != nil {
				return err
			}
		}

		return nil
	})
}

// Diff computes the link changes turning the current role-name set into the
// target set: adds = target\current, removes = current\target. Both inputs
// carry set semantics; duplicates are ignored and output order follows first
// appearance in the respective input.
func Diff(current, target []string) (adds, removes []string) {
	currentSet := make(map[string]struct{}, len(current))
	for _, name := range current {
		currentSet[name] = struct{}{}
	}
	targetSet := make(map[string]struct{}, len(target))
	for _, name := range target {
		targetSet[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(target))
	for _, name := range target {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := currentSet[name]; !ok {
			adds = append(adds, name)
		}
	}

	seen = make(map[string]struct{}, len(current))
	for _, name := range current {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := targetSet[name]; !ok {
			removes = append(removes, name)
		}
	}
	return adds, removes
}

package ledger

import "context"

// Oracle reports external revenue for a venture, denominated in the same unit
// as deposits.
type Oracle interface {
	Revenue(ctx context.Context, ventureID string) (int64, error)
}

// Membership returns the ordered list of active member ids for a venture.
// Distribution cost scales with its length.
type Membership interface {
	ActiveMembers(ctx context.Context, ventureID string) ([]string, error)
}

// ContributionTracker reports recorded contribution weights. Weights are
// unit-less scores (hours, capital, resources) maintained outside the engine.
type ContributionTracker interface {
	TotalWeight(ctx context.Context, ventureID string) (int64, error)
	MemberWeight(ctx context.Context, ventureID, memberID string) (int64, error)
}

// ValueTransfer signals an outbound payment. The collaborator owns the actual
// settlement; a failure is fatal for the operation that requested it.
type ValueTransfer interface {
	Pay(ctx context.Context, amount int64, toMember string) error
}

package evidence

import (
	"context"
	"unicode/utf8"
)

// GenericCommentLength is the character length under which a comment is
// considered too generic to carry signal.
const GenericCommentLength = 20

// Querier is the slice of the Store the behavioral checks need.
type Querier interface {
	DistinctUsersForComment(ctx context.Context, comment string) (int, error)
	UserCommentCount(ctx context.Context, username, comment string) (int, error)
	DistinctProductsForComment(ctx context.Context, comment string) (int, error)
}

// behavioralCheck is one named heuristic over the corpus. Run reports
// whether the heuristic fired; an error only ever removes this one flag
// from the bundle.
type behavioralCheck struct {
	name string
	flag string
	run  func(ctx context.Context, q Querier, comment, username string) (bool, error)
}

// behavioralChecks is the fixed, ordered set of heuristics. Order fixes the
// flag order in the bundle; the checks themselves are independent.
var behavioralChecks = []behavioralCheck{
	{
		name: "cross_user_duplication",
		flag: "Same comment used by multiple users.",
		run: func(ctx context.Context, q Querier, comment, username string) (bool, error) {
			count, err := q.DistinctUsersForComment(ctx, comment)
			if err != nil {
				return false, err
			}
			return count > 1, nil
		},
	},
	{
		name: "self_repetition",
		flag: "User reused the same comment.",
		run: func(ctx context.Context, q Querier, comment, username string) (bool, error) {
			count, err := q.UserCommentCount(ctx, username, comment)
			if err != nil {
				return false, err
			}
			return count > 1, nil
		},
	},
	{
		name: "genericness",
		flag: "Comment is short.",
		run: func(ctx context.Context, q Querier, comment, username string) (bool, error) {
			return utf8.RuneCountInString(comment) < GenericCommentLength, nil
		},
	},
	{
		name: "cross_product_reuse",
		flag: "Same comment used for multiple products.",
		run: func(ctx context.Context, q Querier, comment, username string) (bool, error) {
			count, err := q.DistinctProductsForComment(ctx, comment)
			if err != nil {
				return false, err
			}
			return count > 1, nil
		},
	},
}

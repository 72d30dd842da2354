// Package pathcheck validates user supplied filesystem paths against a
// declarative Constraint: an existence policy paired with a kind policy.
//
// Validation only reads the filesystem. It is used at argument-acceptance
// time so that bad input is rejected before any build stage mutates state.
//
//	c := pathcheck.Constraint{
//		Existence: pathcheck.ExistencePolicy{Presence: pathcheck.PresenceOptional, EmptyOrAbsent: true},
//		Kind:      pathcheck.Directory,
//	}
//	p, err := c.Validate("./dist")
package pathcheck

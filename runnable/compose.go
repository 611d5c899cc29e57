package runnable

import "context"

// Pipe composes first and second so second's input is first's output
// (ayas-core's RunnableSequence / .pipe()). The result is itself a
// Runnable, so Pipe chains associate: a.Pipe(b).Pipe(c) and
// a.Pipe(b.Pipe(c)) invoke the same three steps in the same order.
func Pipe(first, second Runnable) Runnable {
	return BaseRunnable{InvokeFn: func(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
		mid, err := first.Invoke(ctx, input, cfg)
		if err != nil {
			return nil, err
		}
		return second.Invoke(ctx, mid, cfg)
	}}
}

// PipeAll composes a left-to-right sequence of any length, equivalent to
// repeated Pipe calls. Panics if steps is empty, since an empty sequence has
// no well-defined Invoke.
func PipeAll(steps ...Runnable) Runnable {
	if len(steps) == 0 {
		panic("runnable: PipeAll requires at least one step")
	}
	out := steps[0]
	for _, s := range steps[1:] {
		out = Pipe(out, s)
	}
	return out
}

// Condition decides whether a Branch arm should handle a given input.
type Condition func(input interface{}) bool

// branchArm pairs a Condition with the Runnable to invoke when it matches.
type branchArm struct {
	cond Condition
	r    Runnable
}

// BranchBuilder accumulates ordered (condition, Runnable) arms before a
// default is attached, mirroring ayas-core's RunnableBranch::new builder.
type BranchBuilder struct {
	arms []branchArm
}

// NewBranch starts a branch with no arms.
func NewBranch() *BranchBuilder {
	return &BranchBuilder{}
}

// When appends an arm evaluated in the order added; the first matching
// condition wins.
func (b *BranchBuilder) When(cond Condition, r Runnable) *BranchBuilder {
	b.arms = append(b.arms, branchArm{cond: cond, r: r})
	return b
}

// Default finalizes the branch: def runs when no arm's condition matches.
func (b *BranchBuilder) Default(def Runnable) Runnable {
	arms := append([]branchArm(nil), b.arms...)
	return BaseRunnable{InvokeFn: func(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
		for _, arm := range arms {
			if arm.cond(input) {
				return arm.r.Invoke(ctx, input, cfg)
			}
		}
		return def.Invoke(ctx, input, cfg)
	}}
}

// WithFallback wraps primary with fallback: if primary.Invoke returns an
// error, fallback is invoked with the same input (ayas-core's
// RunnableWithFallback). Only Invoke's error triggers the fallback; a
// successful-but-undesirable output is not retried.
func WithFallback(primary, fallback Runnable) Runnable {
	return BaseRunnable{InvokeFn: func(ctx context.Context, input interface{}, cfg Config) (interface{}, error) {
		out, err := primary.Invoke(ctx, input, cfg)
		if err == nil {
			return out, nil
		}
		return fallback.Invoke(ctx, input, cfg)
	}}
}

// Identity returns its input unchanged, matching ayas-core's
// IdentityRunnable; useful as a Branch default or a no-op pipeline stage.
var Identity Runnable = BaseRunnable{InvokeFn: func(_ context.Context, input interface{}, _ Config) (interface{}, error) {
	return input, nil
}}

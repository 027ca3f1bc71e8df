// Package journal keeps a sqlite history of invoker calls.
//
// A Journal subscribes to an invoker as an observer and writes one row per
// finished call: operation, option string, argument counts, result shape,
// duration and any error. Call ids are time-ordered UUIDs.
//
//	j, err := journal.Open("opcall.db")
//	...
//	rt.Subscribe(j)
//	recent, err := j.Recent(ctx, 20)
package journal

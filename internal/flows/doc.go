// Package flows contains the login and refresh orchestration, expressed
// against dependency structs so the steps can be exercised without the root
// package or a live backend. The root Engine wires its stores, limiter, and
// token manager into these deps and delegates.
package flows

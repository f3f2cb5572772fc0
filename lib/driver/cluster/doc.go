// Package cluster adds redirect handling on top of any driver
// connection whose back end is natively clustered. Moved redirects
// switch the wrapper to the node that now owns the slot, ask redirects
// are followed for a single command, and in both cases the original
// operation is replayed exactly once.
package cluster

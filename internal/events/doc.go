// Package events provides a bounded in-memory activity log of domain events
// with ring-buffer eviction, safe for concurrent appends and reads.
package events

// Package sharded implements client-side partitioning over a fixed set
// of driver connections. Keys are assigned to partitions by hashing, so
// a key always lands on the same back end as long as the partition count
// does not change. Hash containers route by their container key, keeping
// a whole container on one partition.
package sharded

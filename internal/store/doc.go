// Package store provides storage and pub/sub for poll snapshots, plus the
// poll state carried between iterations.
//
// The main components are:
//
//   - [Store]: Interface defining snapshot storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with bounded history
//   - [StateStore]: Interface for loading and saving the poll [State]
//   - [MemoryState]: Process-local StateStore
//   - [RedisState]: Redis-backed StateStore that survives restarts
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the poll loop).
package store

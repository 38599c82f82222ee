// Package cache provides the persistent key-value media scripts are stored
// in. Every backend stores opaque string values under string keys; the entry
// format and expiry policy live in the store package.
//
// # Implementations
//
//   - [NewInMemory]: In-process map guarded by a mutex. Lost on restart.
//
//   - [NewSQLite]: Backed by a SQLite database using [modernc.org/sqlite]
//     (pure Go, no CGO). File-backed databases survive restarts, which makes
//     this the closest server-side analogue of browser local storage. Each
//     operation uses a per-query timeout ([DefaultQueryTimeout]).
//
//   - [NewRedis]: Backed by Redis using [github.com/redis/go-redis/v9].
//     Values are plain strings. No Redis TTL is set: freshness is judged from
//     the timestamp inside the stored entry. An optional key prefix supports
//     namespacing. The caller owns the [redis.Client] lifecycle.
//
//   - [NewComposite]: Chains multiple caches. Reads return the first hit and
//     skip a failing layer; writes and removes apply to every cache.
//
// [Open] builds a backend from a short dsn string, which is how the
// command line selects storage. A nil Cache means storage is unavailable;
// the capability package turns that into a negative probe.
package cache

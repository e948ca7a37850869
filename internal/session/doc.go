// Package session holds per-user dashboard state in memory.
//
// A session is created explicitly, carries the merged upload and its
// validated dataset between requests, and is disposed of by an explicit
// delete or after an idle timeout. Sessions never share mutable state.
package session

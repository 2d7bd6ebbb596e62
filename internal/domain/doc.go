// Package domain defines the core types shared by the profile bot.
//
// Types in this package are plain values with no transport, database, or
// HTTP concerns. They are the shared language between the Reddit client, the
// lifecycle engine, and the reply composer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No context.Context, no *http.Client, no *sql.DB in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Small pure accessors are allowed
package domain

// Package domain defines the core types of the email-feedback subsystem:
// bounce and complaint ledger records and global suppression entries.
//
// Types in this package are value objects with no database dependencies
// and no HTTP concerns. They are the shared language between handlers,
// services and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Pure policy methods are allowed (BounceRecord.ShouldSuppress)
package domain

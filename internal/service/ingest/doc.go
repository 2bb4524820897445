// Package ingest turns verified SES bounce and complaint notifications into
// ledger records and suppression decisions.
//
// Bounces are merged per address: the first bounce creates a record, every
// later one bumps its count and overwrites the descriptive fields. The
// record's SuppressionPolicy decides when the address is suppressed.
// Complaints are never merged and suppress on the first occurrence.
//
// Each recipient is committed on its own. A failure partway through a
// multi-recipient notification leaves earlier recipients persisted and
// returns the error; SNS redelivery then replays the whole notification.
package ingest

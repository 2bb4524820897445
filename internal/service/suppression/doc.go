// Package suppression implements the global suppression list service.
//
// This is the single source of truth for whether an email address may
// receive mail from the platform. Entries flow in from SES bounce and
// complaint ingestion; there is no removal path here, manual
// unsuppression is handled outside this service.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package suppression

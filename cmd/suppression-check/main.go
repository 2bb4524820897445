// Command suppression-check reports the ledger state of one or more
// addresses: suppression entry, bounce record and complaint history.
//
//	suppression-check stella@observatory.org orion@sky.net
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skyspots/backend/internal/config"
	"github.com/skyspots/backend/internal/repository/postgres"
	"github.com/skyspots/backend/internal/service/ingest"
	"github.com/skyspots/backend/internal/service/suppression"
	"github.com/skyspots/backend/internal/ses"
)

type checkResult struct {
	Name    string
	Passed  bool
	Detail  string
	Elapsed time.Duration
}

var requiredTables = []string{"ses_bounce_records", "ses_complaint_records", "email_suppressions"}

func main() {
	emails := os.Args[1:]
	if len(emails) == 0 {
		fmt.Fprintln(os.Stderr, "usage: suppression-check <email> [email...]")
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv(envOrDefault("CONFIG_PATH", "config/config.yaml"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "FATAL: DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot connect to database: %v\n", err)
		os.Exit(1)
	}

	results := []checkResult{checkSchema(ctx, db)}
	for _, email := range emails {
		results = append(results, inspectEmail(ctx, db, email))
	}

	fmt.Println("=========================================================")
	fmt.Println(" SES FEEDBACK LEDGER REPORT")
	fmt.Println("=========================================================")
	if !printReport(results) {
		os.Exit(1)
	}
}

// printReport writes every result and reports whether all passed.
func printReport(results []checkResult) bool {
	allPassed := true
	for i, r := range results {
		status := "OK"
		if !r.Passed {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("  [%d] %-45s %s  (%s)\n", i+1, r.Name, status, r.Elapsed.Round(time.Millisecond))
		if r.Detail != "" {
			for _, line := range strings.Split(r.Detail, "\n") {
				fmt.Printf("      %s\n", line)
			}
		}
	}
	return allPassed
}

func checkSchema(ctx context.Context, db *sql.DB) checkResult {
	start := time.Now()
	name := "Ledger tables present"

	var missing []string
	for _, table := range requiredTables {
		var found sql.NullString
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, table).Scan(&found); err != nil {
			return checkResult{Name: name, Detail: fmt.Sprintf("Query error: %v", err), Elapsed: time.Since(start)}
		}
		if !found.Valid {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return checkResult{Name: name, Detail: "missing: " + strings.Join(missing, ", "), Elapsed: time.Since(start)}
	}
	return checkResult{Name: name, Passed: true, Elapsed: time.Since(start)}
}

// inspectEmail summarizes one address. A lookup error fails the check;
// a clean address passes with "no feedback recorded".
func inspectEmail(ctx context.Context, db *sql.DB, raw string) checkResult {
	start := time.Now()
	email := ses.NormalizeEmail(raw)
	name := email

	var lines []string

	entry, err := postgres.NewSuppressionRepo(db).Get(ctx, email)
	switch {
	case errors.Is(err, suppression.ErrNotFound):
		lines = append(lines, "suppressed: no")
	case err != nil:
		return checkResult{Name: name, Detail: fmt.Sprintf("suppression lookup error: %v", err), Elapsed: time.Since(start)}
	default:
		lines = append(lines, fmt.Sprintf("suppressed: yes (reason=%s, since=%s)", entry.Reason, entry.CreatedAt.Format(time.RFC3339)))
		if entry.Notes != "" {
			lines = append(lines, "notes: "+entry.Notes)
		}
	}

	bounce, err := postgres.NewBounceRepo(db).FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ingest.ErrRecordNotFound):
	case err != nil:
		return checkResult{Name: name, Detail: fmt.Sprintf("bounce lookup error: %v", err), Elapsed: time.Since(start)}
	default:
		lines = append(lines, fmt.Sprintf("bounces: %d (latest %s/%s at %s)",
			bounce.BounceCount, bounce.Category, bounce.SubType, bounce.LastBouncedAt.Format(time.RFC3339)))
	}

	complaints, err := postgres.NewComplaintRepo(db).ListByEmail(ctx, email)
	if err != nil {
		return checkResult{Name: name, Detail: fmt.Sprintf("complaint lookup error: %v", err), Elapsed: time.Since(start)}
	}
	if len(complaints) > 0 {
		lines = append(lines, fmt.Sprintf("complaints: %d (latest %s at %s)",
			len(complaints), complaints[0].Category, complaints[0].CreatedAt.Format(time.RFC3339)))
	}

	if entry == nil && bounce == nil && len(complaints) == 0 {
		lines = []string{"no feedback recorded"}
	}
	return checkResult{Name: name, Passed: true, Detail: strings.Join(lines, "\n"), Elapsed: time.Since(start)}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package main inspects a Guidepost database and prints what it holds:
// the instance record, sample guides with their steps, and record counts.
// It opens the database read-only, so it is safe to run against a live server.
package main

import (
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/guidepostapp/guidepost-server/internal/domain"

	_ "modernc.org/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Guidepost/data")
	}

	dbPath := filepath.Join(dataPath, "guidepost.db")
	if _, err := os.Stat(dbPath); err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	printInstance(db)

	// Count guides and check steps
	guideCount := 0
	deletedGuides := 0
	guidesWithSteps := 0
	guidesWithoutSteps := 0
	totalSteps := 0
	activeShareTokens := 0

	rows, err := db.Query(`
		SELECT g.id, g.name, g.shortcut, g.is_public, g.share_token, g.deleted_at, u.email
		FROM guides g
		LEFT JOIN users u ON u.id = g.owner_id
		ORDER BY g.created_at ASC`)
	if err != nil {
		log.Fatalf("Error querying guides: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name, sc string
			isPublic     int
			shareToken   sql.NullString
			deletedAt    sql.NullString
			ownerEmail   sql.NullString
		)
		if err := rows.Scan(&id, &name, &sc, &isPublic, &shareToken, &deletedAt, &ownerEmail); err != nil {
			log.Printf("Error reading guide row: %v", err)
			continue
		}

		if deletedAt.Valid {
			deletedGuides++
			continue
		}

		guideCount++
		if shareToken.Valid {
			activeShareTokens++
		}

		steps, err := loadSteps(db, id)
		if err != nil {
			log.Printf("Error reading steps for guide %s: %v", id, err)
			continue
		}
		totalSteps += len(steps)

		shareCount := countRow(db,
			`SELECT COUNT(*) FROM guide_shares WHERE guide_id = ? AND deleted_at IS NULL`, id)

		if len(steps) > 0 {
			guidesWithSteps++
			// Show first few guides with steps
			if guidesWithSteps <= 3 {
				fmt.Printf("Guide: %s\n", name)
				fmt.Printf("  ID: %s\n", id)
				fmt.Printf("  Shortcut: /%s\n", sc)
				fmt.Printf("  Owner: %s\n", ownerEmail.String)
				fmt.Printf("  Visibility: %s\n", visibility(isPublic != 0, shareCount, shareToken.Valid))
				fmt.Printf("  Steps: %d\n", len(steps))
				for i, st := range steps {
					if i < 5 { // Show first 5 steps
						if st.action != "" {
							fmt.Printf("    [%d] %s (%s)\n", st.position, st.instruction, st.action)
						} else {
							fmt.Printf("    [%d] %s\n", st.position, st.instruction)
						}
					}
				}
				if len(steps) > 5 {
					fmt.Printf("    ... and %d more steps\n", len(steps)-5)
				}
				fmt.Println()
			}
		} else {
			guidesWithoutSteps++
			// Show first few guides without steps
			if guidesWithoutSteps <= 3 {
				fmt.Printf("Guide (NO STEPS): %s\n", name)
				fmt.Printf("  ID: %s\n", id)
				fmt.Printf("  Shortcut: /%s\n", sc)
				fmt.Printf("  Owner: %s\n", ownerEmail.String)
				fmt.Printf("  Visibility: %s\n", visibility(isPublic != 0, shareCount, shareToken.Valid))
				fmt.Println()
			}
		}
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Error iterating guides: %v", err)
	}

	userCount := countRow(db, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`)
	shareGrants := countRow(db, `SELECT COUNT(*) FROM guide_shares WHERE deleted_at IS NULL`)
	sessionCount, expiredSessions := countSessions(db)

	fmt.Println("=== Summary ===")
	fmt.Printf("Users: %d\n", userCount)
	fmt.Printf("Sessions: %d (%d expired)\n", sessionCount, expiredSessions)
	fmt.Printf("Guides: %d (%d soft-deleted)\n", guideCount, deletedGuides)
	fmt.Printf("Guides with steps: %d\n", guidesWithSteps)
	fmt.Printf("Guides without steps: %d\n", guidesWithoutSteps)
	fmt.Printf("Total steps: %d\n", totalSteps)
	fmt.Printf("Share grants: %d\n", shareGrants)
	fmt.Printf("Active share tokens: %d\n", activeShareTokens)
	if guideCount > 0 {
		fmt.Printf("Average steps per guide: %.1f\n", float64(totalSteps)/float64(guideCount))
	}
}

// printInstance prints the server identity record, if the server has booted.
func printInstance(db *sql.DB) {
	var value string
	err := db.QueryRow(`SELECT value FROM instance WHERE key = 'instance'`).Scan(&value)
	if err == sql.ErrNoRows {
		fmt.Println("Instance: not initialized (server has not started yet)")
		fmt.Println()
		return
	}
	if err != nil {
		log.Printf("Error reading instance record: %v", err)
		return
	}

	var inst domain.Instance
	if err := json.Unmarshal([]byte(value), &inst); err != nil {
		log.Printf("Error decoding instance record: %v", err)
		return
	}

	fmt.Printf("Instance: %s\n", inst.Name)
	fmt.Printf("  ID: %s\n", inst.ID)
	fmt.Printf("  Version: %s\n", inst.Version)
	if inst.LocalUrl != "" {
		fmt.Printf("  Local URL: %s\n", inst.LocalUrl)
	}
	fmt.Printf("  Setup at: %s\n", inst.SetupAt.Format(time.RFC3339))
	fmt.Println()
}

// stepRow is the subset of step columns the inspector prints.
type stepRow struct {
	position    int
	instruction string
	action      string
}

// loadSteps returns a guide's steps in presentation order.
func loadSteps(db *sql.DB, guideID string) ([]stepRow, error) {
	rows, err := db.Query(`
		SELECT position, instruction, action FROM guide_steps
		WHERE guide_id = ? ORDER BY position ASC`, guideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []stepRow
	for rows.Next() {
		var st stepRow
		var action sql.NullString
		if err := rows.Scan(&st.position, &st.instruction, &action); err != nil {
			return nil, err
		}
		st.action = action.String
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// visibility renders a guide's sharing state as one line.
func visibility(isPublic bool, shareCount int, hasToken bool) string {
	s := "private"
	if isPublic {
		s = "public"
	}
	if shareCount > 0 {
		s += fmt.Sprintf(", shared with %d address(es)", shareCount)
	}
	if hasToken {
		s += ", share token active"
	}
	return s
}

// countRow runs a single-value COUNT query.
func countRow(db *sql.DB, query string, args ...any) int {
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		log.Printf("Count query failed: %v", err)
		return 0
	}
	return n
}

// countSessions returns the total session count and how many have expired.
// Expiry timestamps are parsed in Go; RFC3339Nano strings with mixed
// precision do not compare reliably inside SQL.
func countSessions(db *sql.DB) (total, expired int) {
	rows, err := db.Query(`SELECT expires_at FROM sessions`)
	if err != nil {
		log.Printf("Error querying sessions: %v", err)
		return 0, 0
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var expiresAt string
		if err := rows.Scan(&expiresAt); err != nil {
			log.Printf("Error reading session row: %v", err)
			continue
		}
		total++
		t, err := time.Parse(time.RFC3339Nano, expiresAt)
		if err != nil {
			continue
		}
		if t.Before(now) {
			expired++
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("Error iterating sessions: %v", err)
	}
	return total, expired
}

// Package main provides a tool to seed the database with demo data.
//
// It creates demo accounts and a handful of guides with steps and sharing
// state so a development server has something to show immediately.
//
// Usage:
//
//	DATA_PATH=~/Guidepost/data go run ./cmd/seed
//	DATA_PATH=~/Guidepost/data go run ./cmd/seed --password s3cret
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/guidepostapp/guidepost-server/internal/auth"
	"github.com/guidepostapp/guidepost-server/internal/domain"
	"github.com/guidepostapp/guidepost-server/internal/id"
	"github.com/guidepostapp/guidepost-server/internal/shortcut"
	"github.com/guidepostapp/guidepost-server/internal/store/sqlite"
)

var password = flag.String("password", "guidepost-demo", "Password for the demo accounts")

// demoAccounts are the accounts the seeder creates. The first one becomes
// root when the database has no users yet, matching registration.
var demoAccounts = []struct {
	email       string
	displayName string
}{
	{"alice@example.com", "Alice Rivera"},
	{"bob@example.com", "Bob Chen"},
	{"carol@example.com", "Carol Taylor"},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Guidepost/data")
	}

	dbPath := filepath.Join(dataPath, "guidepost.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// The store's default noop indexer is fine here: a fresh data dir gets
	// its search index built on the first server start.
	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	users := createDemoUsers(ctx, s)
	if len(users) == 0 {
		log.Fatal("No demo users available, nothing to seed guides for.")
	}

	createDemoGuides(ctx, s, users)

	fmt.Println("\nSeeding complete!")
	fmt.Printf("Demo accounts sign in with password %q\n", *password)
}

// createDemoUsers creates the demo accounts and returns them keyed by email.
// Accounts that already exist are reused so the seeder can run repeatedly.
func createDemoUsers(ctx context.Context, s *sqlite.Store) map[string]*domain.User {
	fmt.Println("\n=== Creating Demo Users ===")

	users := make(map[string]*domain.User)

	count, err := s.CountUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}

	// Hash once; argon2 is deliberately slow.
	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	for i, acct := range demoAccounts {
		if existing, err := s.GetUserByEmail(ctx, acct.email); err == nil {
			fmt.Printf("  User %s already exists, skipping\n", acct.email)
			users[acct.email] = existing
			continue
		}

		user := &domain.User{
			Entity:       domain.Entity{ID: id.MustGenerate("user")},
			Email:        acct.email,
			PasswordHash: passwordHash,
			IsRoot:       count == 0 && i == 0,
			DisplayName:  acct.displayName,
		}
		user.InitTimestamps()

		if err := s.CreateUser(ctx, user); err != nil {
			log.Printf("  Failed to create user %s: %v", acct.email, err)
			continue
		}

		fmt.Printf("  Created user: %s (%s)\n", acct.displayName, acct.email)
		users[acct.email] = user
	}

	return users
}

// guideFixture describes one demo guide. Step IDs and positions are
// assigned at insert time.
type guideFixture struct {
	owner       string // email of the owning demo account
	name        string
	description string
	isPublic    bool
	sharedWith  []string
	shareToken  bool
	steps       []domain.Step
}

var demoGuideFixtures = []guideFixture{
	{
		owner:       "alice@example.com",
		name:        "Reset Your Password",
		description: "Change the password on your account from the security settings page.",
		sharedWith:  []string{"bob@example.com"},
		steps: []domain.Step{
			{
				Instruction:   "Open the account menu in the top right corner.",
				Action:        "click",
				Selector:      "#account-menu",
				ScreenshotURL: "https://cdn.example.com/screens/reset-password-1.png",
				Highlight:     &domain.Highlight{X: 1180, Y: 24, Width: 48, Height: 48},
			},
			{
				Instruction: "Choose Security from the dropdown.",
				Action:      "click",
				Selector:    `[data-menu-item="security"]`,
			},
			{
				Instruction: "Enter your new password in both fields.",
				Action:      "type",
				Selector:    "#new-password",
			},
			{
				Instruction:   "Click Save changes.",
				Action:        "click",
				Selector:      "button.save-changes",
				ScreenshotURL: "https://cdn.example.com/screens/reset-password-4.png",
				Highlight:     &domain.Highlight{X: 520, Y: 610, Width: 140, Height: 40},
			},
		},
	},
	{
		owner:       "alice@example.com",
		name:        "Export the Quarterly Report",
		description: "Download the quarterly numbers as a CSV anyone can open.",
		isPublic:    true,
		steps: []domain.Step{
			{
				Instruction: "Go to the Reports page.",
				Action:      "navigate",
				Value:       "/reports",
			},
			{
				Instruction: "Set the date range to the last quarter.",
				Action:      "click",
				Selector:    "#date-range-picker",
			},
			{
				Instruction:   "Click Export and pick CSV.",
				Action:        "click",
				Selector:      "#export-csv",
				ScreenshotURL: "https://cdn.example.com/screens/export-report-3.png",
				Highlight:     &domain.Highlight{X: 940, Y: 88, Width: 120, Height: 36},
			},
		},
	},
	{
		owner:       "bob@example.com",
		name:        "Set Up Two-Factor Authentication",
		description: "Add an authenticator app to your account for a second sign-in factor.",
		shareToken:  true,
		steps: []domain.Step{
			{
				Instruction: "Open Security settings.",
				Action:      "navigate",
				Value:       "/settings/security",
			},
			{
				Instruction: "Click Enable two-factor authentication.",
				Action:      "click",
				Selector:    "#enable-2fa",
			},
			{
				Instruction:   "Scan the QR code with your authenticator app and enter the code.",
				Action:        "type",
				Selector:      "#totp-code",
				ScreenshotURL: "https://cdn.example.com/screens/two-factor-3.png",
				Highlight:     &domain.Highlight{X: 400, Y: 320, Width: 260, Height: 260},
			},
		},
	},
	{
		owner:       "carol@example.com",
		name:        "Invite a Teammate",
		description: "Send a workspace invite by email.",
		sharedWith:  []string{"alice@example.com", "bob@example.com"},
		steps: []domain.Step{
			{
				Instruction: "Open the Members page from the sidebar.",
				Action:      "click",
				Selector:    `nav [href="/members"]`,
			},
			{
				Instruction: "Click Invite, enter the email address, and send.",
				Action:      "type",
				Selector:    "#invite-email",
			},
		},
	},
}

// createDemoGuides inserts the guide fixtures, skipping shortcuts that are
// already taken.
func createDemoGuides(ctx context.Context, s *sqlite.Store, users map[string]*domain.User) {
	fmt.Println("\n=== Creating Demo Guides ===")

	created := 0
	for _, f := range demoGuideFixtures {
		owner, ok := users[f.owner]
		if !ok {
			log.Printf("  Owner %s missing, skipping guide %q", f.owner, f.name)
			continue
		}

		sc := shortcut.Normalize(f.name)
		if _, err := s.GetGuideByShortcut(ctx, sc); err == nil {
			fmt.Printf("  Guide /%s already exists, skipping\n", sc)
			continue
		}

		steps := make([]domain.Step, len(f.steps))
		copy(steps, f.steps)
		for i := range steps {
			steps[i].ID = id.MustGenerate("step")
			steps[i].Position = i
		}

		guide := &domain.Guide{
			Entity:       domain.Entity{ID: id.MustGenerate("guide")},
			OwnerID:      owner.ID,
			Name:         f.name,
			Shortcut:     sc,
			Description:  f.description,
			IsPublic:     f.isPublic,
			SharedEmails: f.sharedWith,
			Steps:        steps,
		}
		guide.InitTimestamps()

		if f.shareToken {
			token := id.MustGenerate("share")
			guide.ShareToken = &token
		}

		if err := s.CreateGuide(ctx, guide); err != nil {
			log.Printf("  Failed to create guide %q: %v", f.name, err)
			continue
		}

		fmt.Printf("  Created guide: %s (/%s, %d steps)\n", f.name, sc, len(guide.Steps))
		if guide.IsPublic {
			fmt.Printf("    Public guide\n")
		}
		if len(guide.SharedEmails) > 0 {
			fmt.Printf("    Shared with %d address(es)\n", len(guide.SharedEmails))
		}
		if guide.ShareToken != nil {
			fmt.Printf("    Share token: %s\n", *guide.ShareToken)
		}
		created++
	}

	fmt.Printf("=== Created %d guides ===\n", created)
}

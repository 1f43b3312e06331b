package devserver

import (
	"fmt"
	"time"
)

// DemoPassword is the password of the seeded accounts.
const DemoPassword = "peervote-demo"

// Seed fills store with demo accounts and projects. Returns the seeded emails.
func Seed(store *Store) ([]string, error) {
	accounts := []struct{ email, username string }{
		{"alice@example.com", "alice"},
		{"bob@example.com", "bob"},
		{"carol@example.com", "carol"},
	}

	users := make([]*User, 0, len(accounts))
	emails := make([]string, 0, len(accounts))
	for _, a := range accounts {
		u, err := store.AddUser(a.email, a.username, DemoPassword)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", a.email, err)
		}
		users = append(users, u)
		emails = append(emails, u.Email)
	}

	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	projects := []NewProject{
		{Name: "Online Polling", Description: "Create polls and collect answers in real time", Category: CategoryPoll},
		{Name: "Movie App", Description: "Recommends films from your watch history", Category: CategoryMovie},
		{Name: "E-commerce Catalogue", Description: "Product listings with filters and a cart", Category: CategoryEcommerce},
		{Name: "Social Feed", Description: "Posts, follows and a ranked timeline", Category: CategorySocial},
		{Name: "Job Board", Description: "Hiring platform with saved searches", Category: CategoryJob},
		{Name: "Recs", Description: "Generic recommendation engine", Category: CategoryMovie},
		{Name: "Draft Idea", Description: "Not ready yet", Category: CategoryPoll, Status: StatusDraft},
	}

	ids := make([]int64, 0, len(projects))
	for i, p := range projects {
		p.CreatorID = users[i%len(users)].ID
		p.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		id, err := store.AddProject(p)
		if err != nil {
			return nil, fmt.Errorf("seed project %s: %w", p.Name, err)
		}
		ids = append(ids, id)
	}

	// A few votes so the leaderboard is not flat.
	votes := map[int]int{4: 2, 1: 1}
	for project, n := range votes {
		for _, u := range users[1 : 1+n] {
			if err := store.Vote(ids[project], u.ID); err != nil {
				return nil, fmt.Errorf("seed vote: %w", err)
			}
		}
	}
	return emails, nil
}

// Package seed loads a YAML fixture of users and articles into an empty
// database, for demos and local development.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"kbase/internal/auth"
	"kbase/internal/models"
	"kbase/internal/store"
)

// File is the top-level YAML document.
type File struct {
	Users    []UserSeed    `yaml:"users"`
	Articles []ArticleSeed `yaml:"articles"`
}

// UserSeed describes one account to create.
type UserSeed struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// ArticleSeed describes one article; Author names a seeded or existing
// username.
type ArticleSeed struct {
	Title    string   `yaml:"title"`
	Body     string   `yaml:"body"`
	Author   string   `yaml:"author"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
}

// Result counts what Apply created.
type Result struct {
	Users    int
	Articles int
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &file, nil
}

// Apply creates the seeded users and articles. Usernames that already exist
// are reused rather than recreated.
func Apply(ctx context.Context, st *store.Store, file *File) (Result, error) {
	var result Result
	if file == nil {
		return result, nil
	}

	for i, userSeed := range file.Users {
		username, err := auth.NormalizeUsername(userSeed.Username)
		if err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		existing, err := st.GetUserByUsername(ctx, username)
		if err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		if existing != nil {
			continue
		}
		email, err := auth.NormalizeEmail(userSeed.Email)
		if err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := auth.ValidatePassword(userSeed.Password); err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		hash, err := auth.HashPassword(userSeed.Password)
		if err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		user := &models.User{Username: username, Email: email, PasswordHash: hash}
		if err := st.CreateUser(ctx, user); err != nil {
			return result, fmt.Errorf("users[%d]: %w", i, err)
		}
		result.Users++
	}

	for i, articleSeed := range file.Articles {
		author := strings.TrimSpace(strings.ToLower(articleSeed.Author))
		if author == "" {
			return result, fmt.Errorf("articles[%d]: author is required", i)
		}
		user, err := st.GetUserByUsername(ctx, author)
		if err != nil {
			return result, fmt.Errorf("articles[%d]: %w", i, err)
		}
		if user == nil {
			return result, fmt.Errorf("articles[%d]: unknown author %q", i, author)
		}
		title := strings.TrimSpace(articleSeed.Title)
		body := strings.TrimSpace(articleSeed.Body)
		if title == "" || body == "" {
			return result, fmt.Errorf("articles[%d]: title and body are required", i)
		}
		article := &models.Article{
			Title:    title,
			Body:     body,
			AuthorID: user.ID,
			Category: strings.TrimSpace(articleSeed.Category),
			Tags:     articleSeed.Tags,
		}
		if err := st.CreateArticle(ctx, article); err != nil {
			return result, fmt.Errorf("articles[%d]: %w", i, err)
		}
		result.Articles++
	}

	return result, nil
}

package store

import (
	"context"
	"testing"

	"kbase/internal/models"
)

func TestCreateAndGetArticle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	authorID := testUser(t, st, "alice")
	article := &models.Article{
		Title:    "Intro",
		Body:     "Welcome",
		AuthorID: authorID,
		Category: "guides",
		Tags:     []string{"go", "sqlite"},
	}
	if err := st.CreateArticle(ctx, article); err != nil {
		t.Fatalf("create: %v", err)
	}
	if article.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := st.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected article, got nil")
	}
	if got.Title != "Intro" || got.AuthorName != "alice" || got.Category != "guides" {
		t.Fatalf("unexpected article: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "sqlite" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}
}

func TestCreateArticleUnknownAuthor(t *testing.T) {
	st := testStore(t)

	article := &models.Article{Title: "x", Body: "y", AuthorID: "us-zzzzzz"}
	if err := st.CreateArticle(context.Background(), article); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateArticleDisabledAuthor(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	authorID := testUser(t, st, "alice")
	if err := st.SetUserDisabled(ctx, authorID, true); err != nil {
		t.Fatalf("disable: %v", err)
	}

	article := &models.Article{Title: "x", Body: "y", AuthorID: authorID}
	if err := st.CreateArticle(ctx, article); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetArticleOwner(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	authorID := testUser(t, st, "alice")
	articleID := testArticle(t, st, authorID, "First")

	owner, err := st.GetArticleOwner(ctx, articleID)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner != authorID {
		t.Fatalf("expected owner %s, got %s", authorID, owner)
	}

	if _, err := st.GetArticleOwner(ctx, "ar-zzzzzz"); err != ErrArticleNotFound {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestListArticlesFilters(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	bob := testUser(t, st, "bob")

	first := &models.Article{Title: "Go basics", Body: "package main", AuthorID: alice, Category: "guides"}
	if err := st.CreateArticle(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &models.Article{Title: "SQLite tips", Body: "pragmas and journaling", AuthorID: bob, Category: "databases"}
	if err := st.CreateArticle(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := st.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(all))
	}

	bySearch, err := st.ListArticles(ctx, ArticleFilter{Search: "journaling"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "SQLite tips" {
		t.Fatalf("unexpected search result: %+v", bySearch)
	}

	byCategory, err := st.ListArticles(ctx, ArticleFilter{Category: "guides"})
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].Title != "Go basics" {
		t.Fatalf("unexpected category result: %+v", byCategory)
	}

	byAuthor, err := st.ListArticles(ctx, ArticleFilter{AuthorID: bob})
	if err != nil {
		t.Fatalf("author: %v", err)
	}
	if len(byAuthor) != 1 || byAuthor[0].AuthorName != "bob" {
		t.Fatalf("unexpected author result: %+v", byAuthor)
	}
}

func TestListArticlesSearchEscapesLike(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	article := &models.Article{Title: "100% working", Body: "plain", AuthorID: alice}
	if err := st.CreateArticle(ctx, article); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := &models.Article{Title: "100 working", Body: "plain", AuthorID: alice}
	if err := st.CreateArticle(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.ListArticles(ctx, ArticleFilter{Search: "100%"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "100% working" {
		t.Fatalf("expected literal percent match only, got %+v", got)
	}
}

func TestUpdateArticle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "Old title")

	article, err := st.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	article.Title = "New title"
	article.Tags = []string{"updated"}
	if err := st.UpdateArticle(ctx, article); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "New title" || len(got.Tags) != 1 || got.Tags[0] != "updated" {
		t.Fatalf("unexpected article after update: %+v", got)
	}

	missing := &models.Article{ID: "ar-zzzzzz", Title: "x", Body: "y", AuthorID: alice}
	if err := st.UpdateArticle(ctx, missing); err != ErrArticleNotFound {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestDeleteArticle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	alice := testUser(t, st, "alice")
	articleID := testArticle(t, st, alice, "Doomed")

	if err := st.DeleteArticle(ctx, articleID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := st.GetArticle(ctx, articleID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected article to be gone")
	}

	if err := st.DeleteArticle(ctx, articleID); err != ErrArticleNotFound {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}

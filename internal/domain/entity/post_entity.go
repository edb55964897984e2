package entity

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	TitleMinLen   = 3
	TitleMaxLen   = 200
	ContentMinLen = 10
	ContentMaxLen = 20000
)

// Post is a text entry owned by the identity that created it.
// OwnerID is assigned by NewPost only; Revise never touches it.
type Post struct {
	ID         int64
	Title      string
	Content    string
	OwnerID    int64
	OwnerEmail string // read projection, joined from users
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPost builds an unsaved post for the given resolved owner.
// It returns the per-field validation problems, if any.
func NewPost(ownerID int64, title, content string) (*Post, map[string]string) {
	p := &Post{OwnerID: ownerID}
	if problems := p.Revise(title, content); problems != nil {
		return nil, problems
	}
	return p, nil
}

// Revise replaces title and content after trimming and validating them.
// The post is left unchanged when validation fails.
func (p *Post) Revise(title, content string) map[string]string {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)

	problems := map[string]string{}
	if msg := checkLength(title, TitleMinLen, TitleMaxLen); msg != "" {
		problems["title"] = msg
	}
	if msg := checkLength(content, ContentMinLen, ContentMaxLen); msg != "" {
		problems["content"] = msg
	}
	if len(problems) > 0 {
		return problems
	}
	p.Title = title
	p.Content = content
	return nil
}

func (p *Post) OwnedBy(userID int64) bool {
	return userID != 0 && p.OwnerID == userID
}

func checkLength(s string, lo, hi int) string {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return "is required"
	case n < lo:
		return "must be at least " + strconv.Itoa(lo) + " characters long"
	case n > hi:
		return "must be at most " + strconv.Itoa(hi) + " characters long"
	}
	return ""
}

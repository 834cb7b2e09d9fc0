package domain

import (
	"fmt"
	"strings"
	"time"
)

// Media kinds.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// RecommendationLimit caps recommendation and random-sample results.
const RecommendationLimit = 10

type Post struct {
	PostID       string    `json:"id" dynamodbav:"post_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Title        string    `json:"title" dynamodbav:"title"`
	Description  string    `json:"description" dynamodbav:"description"`
	Status       string    `json:"status" dynamodbav:"status"`
	GroupID      *string   `json:"group_id" dynamodbav:"group_id"`
	Visibility   string    `json:"visibility" dynamodbav:"visibility"`
	Tags         []string  `json:"tags" dynamodbav:"tags"`
	Media        *Media    `json:"media,omitempty" dynamodbav:"media,omitempty"`
	LikeCount    int64     `json:"like_count" dynamodbav:"like_count"`
	CommentCount int64     `json:"comment_count" dynamodbav:"comment_count"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

func (p *Post) OwnerID() string { return p.UserID }

// Media describes an uploaded attachment. Object is the storage key and never
// leaves the server.
type Media struct {
	Type   string `json:"type" dynamodbav:"type"`
	URL    string `json:"url" dynamodbav:"url"`
	Object string `json:"-" dynamodbav:"object"`
}

// MediaKind maps a MIME type to a media kind.
func MediaKind(contentType string) (string, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return MediaImage, nil
	case strings.HasPrefix(ct, "video/"):
		return MediaVideo, nil
	default:
		return "", fmt.Errorf("media must be an image or a video: %w", ErrBadRequest)
	}
}

// PostUpdate carries a partial post update. Nil fields are left unchanged.
// A GroupID pointing at "" clears the group.
type PostUpdate struct {
	Title       *string
	Description *string
	Status      *string
	GroupID     *string
	Visibility  *string
	Tags        []string
	Media       *Media
}

// Empty reports whether the update would change nothing.
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.GroupID == nil &&
		u.Visibility == nil && u.Tags == nil && u.Media == nil
}

// StoredGroupID returns the group id the update writes: nil when the update
// clears the group.
func (u PostUpdate) StoredGroupID() *string {
	if u.GroupID == nil || *u.GroupID == "" {
		return nil
	}
	return u.GroupID
}

// PostWithComments is the read model returned by feed endpoints.
type PostWithComments struct {
	Post
	Comments []Comment `json:"comments"`
}

// AttachComments pairs each post with its comments, keeping the order of posts.
func AttachComments(posts []Post, byPost map[string][]Comment) []PostWithComments {
	out := make([]PostWithComments, len(posts))
	for i := range posts {
		cs := byPost[posts[i].PostID]
		if cs == nil {
			cs = []Comment{}
		}
		out[i] = PostWithComments{Post: posts[i], Comments: cs}
	}
	return out
}

// PostIDs returns the ids of posts in order.
func PostIDs(posts []Post) []string {
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].PostID
	}
	return ids
}

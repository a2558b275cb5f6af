package models

import (
	"time"
)

type Post struct {
	ID        uint      `gorm:"primaryKey"`
	AuthorID  uint      `gorm:"index;not null"`
	Title     *string   `gorm:"size:200"`
	Content   string    `gorm:"type:text;not null"`
	Image     *string   `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	Author    User      `gorm:"foreignKey:AuthorID"`
	Comments  []Comment `gorm:"foreignKey:PostID"`
	Likes     []Like    `gorm:"foreignKey:PostID"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"index;not null"`
	AuthorID  uint      `gorm:"index;not null"`
	ParentID  *uint     `gorm:"index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    User      `gorm:"foreignKey:AuthorID"`
	Replies   []Comment `gorm:"foreignKey:ParentID"`
}

type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"not null;uniqueIndex:idx_like_user_post"`
	PostID    uint      `json:"postId" gorm:"not null;uniqueIndex:idx_like_user_post;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// Counts mirrors the denormalized _count block returned with posts
type Counts struct {
	Comments int64 `json:"comments"`
	Likes    int64 `json:"likes"`
}

type PostDto struct {
	ID        uint         `json:"id"`
	AuthorID  uint         `json:"authorId"`
	Title     *string      `json:"title"`
	Content   string       `json:"content"`
	Image     *string      `json:"image"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Author    UserDto      `json:"author"`
	Count     Counts       `json:"_count"`
	Comments  []CommentDto `json:"comments,omitempty"`
}

type CommentDto struct {
	ID        uint         `json:"id"`
	PostID    uint         `json:"postId"`
	AuthorID  uint         `json:"authorId"`
	ParentID  *uint        `json:"parentId"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Author    UserDto      `json:"author"`
	Replies   []CommentDto `json:"replies,omitempty"`
}

// ToDto converts a post with a loaded Author into its API shape
func (p Post) ToDto(counts Counts) PostDto {
	return PostDto{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Content:   p.Content,
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Author:    p.Author.Summary(),
		Count:     counts,
	}
}

// ToDto converts a comment with a loaded Author (and optionally Replies)
func (c Comment) ToDto() CommentDto {
	dto := CommentDto{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    c.Author.Summary(),
	}
	for _, reply := range c.Replies {
		dto.Replies = append(dto.Replies, reply.ToDto())
	}
	return dto
}

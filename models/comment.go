package models

import (
	"time"
)

type Comment struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	EventID  uint      `json:"event_id" gorm:"not null;index"`
	AuthorID uint      `json:"author_id" gorm:"not null;index"`
	Text     string    `json:"text" gorm:"not null;type:text"`
	PubDate  time.Time `json:"pub_date" gorm:"autoCreateTime;index"`

	Author User `json:"-" gorm:"foreignKey:AuthorID"`
}

type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:unique_like"`
	CommentID uint      `json:"comment_id" gorm:"not null;uniqueIndex:unique_like;index"`
	CreatedAt time.Time `json:"created_at"`
}

const CommentOrder = "comments.id DESC"

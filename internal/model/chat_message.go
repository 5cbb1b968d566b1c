package model

type ChatMessage struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  string `gorm:"index;not null" json:"user_id"`
	Message string `gorm:"type:text;not null" json:"message"`
	IsAI    bool   `gorm:"default:false;not null" json:"is_ai"`
	// Unix millisecond timestamp, the only ordering key for replay
	CreatedAt int64 `gorm:"autoCreateTime:milli;index" json:"created_at"`

	// Author display name, filled when listing
	Username string `gorm:"-" json:"username,omitempty"`
}

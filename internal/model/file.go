package model

type File struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginalName string `gorm:"not null" json:"original_name"`
	// Key used against the blob store. Namespaced by owner so different users
	// can upload files with the same name
	StorageName   string `gorm:"uniqueIndex;not null" json:"storage_name"`
	FileSize      int64  `gorm:"not null" json:"file_size"`
	MimeType      string `json:"mime_type"`
	UploadedBy    string `gorm:"index;not null" json:"uploaded_by"`
	IsPublic      bool   `gorm:"not null" json:"is_public"`
	DownloadCount int64  `gorm:"default:0;not null" json:"download_count"`
	// Unix millisecond timestamp
	CreatedAt int64 `gorm:"autoCreateTime:milli;index" json:"created_at"`

	// Filled from the users table when listing
	Uploader string `gorm:"-" json:"uploader,omitempty"`
}

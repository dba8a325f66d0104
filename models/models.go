package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type WatermarkKind string

const (
	WatermarkText  WatermarkKind = "TEXT"
	WatermarkImage WatermarkKind = "IMAGE"
)

type User struct {
	ID            string `gorm:"primaryKey;size:36"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Email         string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash  string `gorm:"size:255" json:"-"`
	Role          string `gorm:"size:32;not null;default:'USER'"`
	Name          string `gorm:"size:255"`
	AvatarURL     string `gorm:"size:1024"`
	Bio           string `gorm:"type:text"`
	OAuthProvider string `gorm:"size:64"`
	Uploads       []Upload
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Upload is a user-submitted source PDF. Path is the object storage key.
type Upload struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UserID    string `gorm:"size:36;not null;index"`
	User      *User  `json:"user,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FileName  string `gorm:"size:512;not null"`
	FileType  string `gorm:"size:128"`
	FileSize  int64
	PageCount int
	Path      string `gorm:"size:1024;not null"`
	Metadata  datatypes.JSON

	Watermarked []WatermarkedPDF `gorm:"foreignKey:OriginalUploadID"`
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// WatermarkedPDF is a derived artifact produced from an Upload.
type WatermarkedPDF struct {
	ID               string `gorm:"primaryKey;size:36"`
	CreatedAt        time.Time
	OriginalUploadID string  `gorm:"size:36;not null;index"`
	OriginalUpload   *Upload `json:"original_upload,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	UserID           string  `gorm:"size:36;not null;index"`
	Path             string  `gorm:"size:1024;not null"`
	FileSize         int64
	Kind             WatermarkKind `gorm:"size:16;not null"`
	Settings         datatypes.JSON
}

func (w *WatermarkedPDF) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

type Feedback struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UserID    string `gorm:"size:36;not null;index"`
	Content   string `gorm:"type:text;not null"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

type LegalResource struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Title     string `gorm:"size:512;not null;uniqueIndex"`
	Content   string `gorm:"type:text"`
	Link      string `gorm:"size:1024"`
}

func (r *LegalResource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// All returns every model in migration order.
func All() []any {
	return []any{&User{}, &Upload{}, &WatermarkedPDF{}, &Feedback{}, &LegalResource{}}
}

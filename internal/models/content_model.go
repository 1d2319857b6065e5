package models

import (
	"database/sql/driver"
	"time"

	"github.com/maheshrc27/socialsync/internal/apperr"
)

type BlockKind string

const (
	BlockImage BlockKind = "image"
	BlockVideo BlockKind = "video"
)

type FileKind string

const (
	FileImage    FileKind = "image"
	FileVideo    FileKind = "video"
	FileDocument FileKind = "document"
	FileOther    FileKind = "other"
)

type FileRef struct {
	Kind         FileKind `json:"kind"`
	URL          string   `json:"url"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
}

type Comment struct {
	ID                string    `json:"id"`
	ParentID          string    `json:"parentId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	Author            string    `json:"author"`
	Text              string    `json:"text"`
	RevisionRequested bool      `json:"revisionRequested,omitempty"`
}

// Version is an immutable rendering of a block. Only its comment thread grows.
type Version struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	By        string     `json:"by"`
	Caption   string     `json:"caption,omitempty"`
	File      FileRef    `json:"file"`
	Comments  []*Comment `json:"comments,omitempty"`
}

// Block is one creative asset of a post with its full revision history.
// Versions are append-only and CurrentVersionID always names one of them.
type Block struct {
	ID               string     `json:"id"`
	Kind             BlockKind  `json:"kind"`
	CurrentVersionID string     `json:"currentVersionId"`
	Versions         []*Version `json:"versions"`
	Comments         []*Comment `json:"comments,omitempty"`
}

func (b *Block) Version(id string) *Version {
	for _, v := range b.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (b *Block) CurrentVersion() *Version {
	return b.Version(b.CurrentVersionID)
}

// AppendVersion adds v to the history and makes it current.
func (b *Block) AppendVersion(v *Version) error {
	if v == nil || v.ID == "" {
		return apperr.Validation("version", "id is required")
	}
	if v.File.URL == "" {
		return apperr.Validation("version.file", "url is required")
	}
	if b.Version(v.ID) != nil {
		return apperr.Validation("version", "version %s already exists", v.ID)
	}
	if !b.Accepts(v.File.Kind) {
		return apperr.Validation("version.file", "%s file cannot be added to a %s block", v.File.Kind, b.Kind)
	}

	b.Versions = append(b.Versions, v)
	b.CurrentVersionID = v.ID
	return nil
}

// SetCurrentVersion moves the current pointer to an existing version.
func (b *Block) SetCurrentVersion(id string) error {
	if b.Version(id) == nil {
		return apperr.NotFound("version", id)
	}
	b.CurrentVersionID = id
	return nil
}

func (b *Block) AddComment(c *Comment) error {
	comments, err := appendComment(b.Comments, c)
	if err != nil {
		return err
	}
	b.Comments = comments
	return nil
}

func (v *Version) AddComment(c *Comment) error {
	comments, err := appendComment(v.Comments, c)
	if err != nil {
		return err
	}
	v.Comments = comments
	return nil
}

// Validate checks that the current pointer resolves.
func (b *Block) Validate() error {
	if len(b.Versions) == 0 {
		return apperr.Validation("block", "block %s has no versions", b.ID)
	}
	if b.CurrentVersion() == nil {
		return apperr.Validation("block", "block %s current version %q does not exist", b.ID, b.CurrentVersionID)
	}
	return nil
}

func appendComment(list []*Comment, c *Comment) ([]*Comment, error) {
	if c == nil || c.ID == "" {
		return list, apperr.Validation("comment", "id is required")
	}
	if c.Text == "" {
		return list, apperr.Validation("comment.text", "text is required")
	}
	if c.ParentID != "" {
		found := false
		for _, existing := range list {
			if existing.ID == c.ParentID {
				found = true
				break
			}
		}
		if !found {
			return list, apperr.NotFound("comment", c.ParentID)
		}
	}
	return append(list, c), nil
}

// Accepts reports whether a file of the given kind can become a version of b.
func (b *Block) Accepts(file FileKind) bool {
	switch b.Kind {
	case BlockImage:
		return file == FileImage
	case BlockVideo:
		return file == FileVideo
	}
	return true
}

// Blocks is the ordered content of a post, stored as jsonb.
type Blocks []*Block

func (bs Blocks) Find(id string) *Block {
	for _, b := range bs {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (bs Blocks) Validate() error {
	for _, b := range bs {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (bs Blocks) Value() (driver.Value, error) {
	if bs == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]*Block(bs))
}

func (bs *Blocks) Scan(src any) error { return jsonScan(src, (*[]*Block)(bs)) }

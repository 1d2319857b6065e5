package models

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialsync/internal/apperr"
)

type PostStatus string

const (
	PostStatusDraft            PostStatus = "Draft"
	PostStatusPendingApproval  PostStatus = "Pending Approval"
	PostStatusNeedsRevisions   PostStatus = "Needs Revisions"
	PostStatusRevised          PostStatus = "Revised"
	PostStatusApproved         PostStatus = "Approved"
	PostStatusScheduled        PostStatus = "Scheduled"
	PostStatusPublishing       PostStatus = "Publishing"
	PostStatusPublished        PostStatus = "Published"
	PostStatusFailedPublishing PostStatus = "Failed Publishing"
)

var postStatuses = []PostStatus{
	PostStatusDraft, PostStatusPendingApproval, PostStatusNeedsRevisions, PostStatusRevised,
	PostStatusApproved, PostStatusScheduled, PostStatusPublishing, PostStatusPublished,
	PostStatusFailedPublishing,
}

func ParsePostStatus(s string) (PostStatus, error) {
	status := PostStatus(s)
	if !slices.Contains(postStatuses, status) {
		return "", apperr.Validation("status", "unknown post status %q", s)
	}
	return status, nil
}

type Post struct {
	ID               int64           `db:"id" json:"id"`
	WorkspaceID      int64           `db:"workspace_id" json:"workspace_id"`
	BoardID          int64           `db:"board_id" json:"board_id"`
	Caption          CaptionData     `db:"caption" json:"caption"`
	Platforms        PlatformSet     `db:"platforms" json:"platforms"`
	PageIDs          pq.Int64Array   `db:"page_ids" json:"page_ids"`
	Blocks           Blocks          `db:"blocks" json:"blocks"`
	Settings         PostSettings    `db:"settings" json:"settings"`
	Status           PostStatus      `db:"status" json:"status"`
	PublishDate      *time.Time      `db:"publish_date" json:"publish_date,omitempty"`
	PlatformPostIDs  PlatformPostIDs `db:"platform_post_ids" json:"platform_post_ids"`
	LastPublishError string          `db:"last_publish_error" json:"last_publish_error,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// CaptionData is either one synced caption or a per-platform map falling back
// to Default.
type CaptionData struct {
	Synced      bool                `json:"synced"`
	Default     string              `json:"default"`
	PerPlatform map[Platform]string `json:"perPlatform,omitempty"`
}

func (c CaptionData) For(p Platform) string {
	if !c.Synced {
		if v, ok := c.PerPlatform[p]; ok && v != "" {
			return v
		}
	}
	return c.Default
}

func (c CaptionData) Value() (driver.Value, error) { return jsonValue(c) }

func (c *CaptionData) Scan(src any) error { return jsonScan(src, c) }

// PlatformSet is stored as text[].
type PlatformSet []Platform

func (s PlatformSet) Contains(p Platform) bool {
	return slices.Contains(s, p)
}

func (s PlatformSet) Value() (driver.Value, error) {
	arr := make(pq.StringArray, len(s))
	for i, p := range s {
		arr[i] = string(p)
	}
	return arr.Value()
}

func (s *PlatformSet) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	set := make(PlatformSet, 0, len(arr))
	for _, name := range arr {
		set = append(set, Platform(name))
	}
	*s = set
	return nil
}

// PlatformPostIDs maps "<platform>_<pageId>" to the provider's post id so two
// pages of the same platform never collide.
type PlatformPostIDs map[string]string

func PlatformPostKey(p Platform, pageID int64) string {
	return fmt.Sprintf("%s_%d", p, pageID)
}

func (m PlatformPostIDs) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]string(m))
}

func (m *PlatformPostIDs) Scan(src any) error { return jsonScan(src, (*map[string]string)(m)) }

// PostSettings carries per-platform publish options.
type PostSettings struct {
	TikTok    *TikTokSettings    `json:"tiktok,omitempty"`
	YouTube   *YouTubeSettings   `json:"youtube,omitempty"`
	Pinterest *PinterestSettings `json:"pinterest,omitempty"`
	Google    *GoogleSettings    `json:"google,omitempty"`
}

type TikTokSettings struct {
	PrivacyLevel          string `json:"privacyLevel,omitempty"`
	DisableDuet           bool   `json:"disableDuet"`
	DisableStitch         bool   `json:"disableStitch"`
	DisableComment        bool   `json:"disableComment"`
	BrandContentToggle    bool   `json:"brandContentToggle"`
	BrandOrganicToggle    bool   `json:"brandOrganicToggle"`
	AutoAddMusic          bool   `json:"autoAddMusic"`
	IsAIGC                bool   `json:"isAigc"`
	VideoCoverTimestampMs int    `json:"videoCoverTimestampMs,omitempty"`
}

type YouTubeSettings struct {
	Title         string `json:"title,omitempty"`
	PrivacyStatus string `json:"privacyStatus,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
}

type PinterestSettings struct {
	Title string `json:"title,omitempty"`
	Link  string `json:"link,omitempty"`
}

type GoogleSettings struct {
	CallToAction *GoogleCallToAction `json:"callToAction,omitempty"`
}

type GoogleCallToAction struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url,omitempty"`
}

func (s PostSettings) Value() (driver.Value, error) { return jsonValue(s) }

func (s *PostSettings) Scan(src any) error { return jsonScan(src, s) }

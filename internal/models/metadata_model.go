package models

import "database/sql/driver"

// Metadata is the platform-specific part of an account or page. Exactly one
// variant matching Kind is expected to be set; Extra holds fields no variant
// models.
type Metadata struct {
	Kind      Platform           `json:"kind,omitempty"`
	Instagram *InstagramMetadata `json:"instagram,omitempty"`
	Facebook  *FacebookMetadata  `json:"facebook,omitempty"`
	TikTok    *TikTokMetadata    `json:"tiktok,omitempty"`
	YouTube   *YouTubeMetadata   `json:"youtube,omitempty"`
	LinkedIn  *LinkedInMetadata  `json:"linkedin,omitempty"`
	Pinterest *PinterestMetadata `json:"pinterest,omitempty"`
	Google    *GoogleMetadata    `json:"google,omitempty"`
	Extra     map[string]any     `json:"extra,omitempty"`
}

type InstagramMetadata struct {
	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	FacebookPageID    string `json:"facebookPageId,omitempty"`
	// Method is the connection flow the account came through.
	Method string `json:"method,omitempty"`
}

type FacebookMetadata struct {
	Category string   `json:"category,omitempty"`
	Tasks    []string `json:"tasks,omitempty"`
}

type TikTokMetadata struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type YouTubeMetadata struct {
	Email             string `json:"email,omitempty"`
	CustomURL         string `json:"customUrl,omitempty"`
	UploadsPlaylistID string `json:"uploadsPlaylistId,omitempty"`
}

type LinkedInMetadata struct {
	URN     string `json:"urn,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type PinterestMetadata struct {
	Username    string `json:"username,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
	Description string `json:"description,omitempty"`
}

type GoogleMetadata struct {
	// AccountName and LocationName are resource names such as accounts/123 and
	// locations/456.
	AccountName  string `json:"accountName,omitempty"`
	LocationName string `json:"locationName,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Method returns the connection flow recorded for the entity, if any.
func (m Metadata) Method() string {
	if m.Instagram != nil {
		return m.Instagram.Method
	}
	return ""
}

func (m Metadata) Value() (driver.Value, error) {
	return jsonValue(m)
}

func (m *Metadata) Scan(src any) error {
	return jsonScan(src, m)
}

package transfer

type TiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// OK reports whether the envelope carries TikTok's success code.
func (e TiktokError) OK() bool {
	return e.Code == "" || e.Code == "ok"
}

type TiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type TiktokUser struct {
	OpenID      string `json:"open_id"`
	AvatarURL   string `json:"avatar_url"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
}

type TiktokUserResponse struct {
	Data struct {
		User TiktokUser `json:"user"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokCreatorInfo struct {
	CreatorAvatarURL        string   `json:"creator_avatar_url"`
	CreatorUsername         string   `json:"creator_username"`
	CreatorNickname         string   `json:"creator_nickname"`
	PrivacyLevelOptions     []string `json:"privacy_level_options"`
	CommentDisabled         bool     `json:"comment_disabled"`
	DuetDisabled            bool     `json:"duet_disabled"`
	StitchDisabled          bool     `json:"stitch_disabled"`
	MaxVideoPostDurationSec int32    `json:"max_video_post_duration_sec"`
}

type TiktokCreatorInfoResponse struct {
	Data  TiktokCreatorInfo `json:"data"`
	Error TiktokError       `json:"error"`
}

type TiktokPostInfo struct {
	Title                 string `json:"title,omitempty"`
	Description           string `json:"description,omitempty"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableStitch         bool   `json:"disable_stitch"`
	DisableComment        bool   `json:"disable_comment"`
	BrandContentToggle    bool   `json:"brand_content_toggle"`
	BrandOrganicToggle    bool   `json:"brand_organic_toggle"`
	AutoAddMusic          bool   `json:"auto_add_music,omitempty"`
	IsAIGC                bool   `json:"is_aigc,omitempty"`
	VideoCoverTimestampMs int    `json:"video_cover_timestamp_ms,omitempty"`
}

type TiktokSourceInfo struct {
	Source          string   `json:"source"`
	VideoURL        string   `json:"video_url,omitempty"`
	PhotoCoverIndex int      `json:"photo_cover_index,omitempty"`
	PhotoImages     []string `json:"photo_images,omitempty"`
}

type TiktokPublishRequest struct {
	PostInfo   TiktokPostInfo   `json:"post_info"`
	SourceInfo TiktokSourceInfo `json:"source_info"`
	PostMode   string           `json:"post_mode,omitempty"`
	MediaType  string           `json:"media_type,omitempty"`
}

type TiktokPublishResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokVideo struct {
	ID               string `json:"id"`
	CreateTime       int64  `json:"create_time"`
	Title            string `json:"title"`
	CoverImageURL    string `json:"cover_image_url"`
	ShareURL         string `json:"share_url"`
	VideoDescription string `json:"video_description"`
	Duration         int    `json:"duration"`
}

type TiktokVideoListRequest struct {
	MaxCount int   `json:"max_count"`
	Cursor   int64 `json:"cursor,omitempty"`
}

type TiktokVideoListResponse struct {
	Data struct {
		Videos  []TiktokVideo `json:"videos"`
		Cursor  int64         `json:"cursor"`
		HasMore bool          `json:"has_more"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

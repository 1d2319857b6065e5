package transfer

type PinterestToken struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ResponseType          string `json:"response_type"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
}

type PinterestUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	BusinessName string `json:"business_name"`
	ProfileImage string `json:"profile_image"`
	AccountType  string `json:"account_type"`
}

type PinterestBoard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

type PinterestBoardList struct {
	Items    []PinterestBoard `json:"items"`
	Bookmark string           `json:"bookmark"`
}

type PinterestMediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type PinterestCreatePin struct {
	BoardID     string               `json:"board_id"`
	MediaSource PinterestMediaSource `json:"media_source"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Link        string               `json:"link,omitempty"`
}

type PinterestImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type PinterestPin struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	CreatedAt   string `json:"created_at"`
	Media       struct {
		MediaType string                    `json:"media_type"`
		Images    map[string]PinterestImage `json:"images"`
	} `json:"media"`
}

type PinterestPinList struct {
	Items    []PinterestPin `json:"items"`
	Bookmark string         `json:"bookmark"`
}

package transfer

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type GoogleBusinessAccount struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

type GoogleBusinessAccountList struct {
	Accounts      []GoogleBusinessAccount `json:"accounts"`
	NextPageToken string                  `json:"nextPageToken"`
}

type GoogleAddress struct {
	AddressLines       []string `json:"addressLines"`
	Locality           string   `json:"locality"`
	AdministrativeArea string   `json:"administrativeArea"`
	PostalCode         string   `json:"postalCode"`
	RegionCode         string   `json:"regionCode"`
}

type GoogleLocation struct {
	Name              string         `json:"name"`
	Title             string         `json:"title"`
	StorefrontAddress *GoogleAddress `json:"storefrontAddress"`
}

type GoogleLocationList struct {
	Locations     []GoogleLocation `json:"locations"`
	NextPageToken string           `json:"nextPageToken"`
}

type GoogleMediaItem struct {
	MediaFormat string `json:"mediaFormat"`
	SourceURL   string `json:"sourceUrl"`
	GoogleURL   string `json:"googleUrl,omitempty"`
}

type GoogleCallToAction struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url,omitempty"`
}

type GoogleLocalPost struct {
	Name         string              `json:"name,omitempty"`
	LanguageCode string              `json:"languageCode,omitempty"`
	Summary      string              `json:"summary"`
	TopicType    string              `json:"topicType,omitempty"`
	Media        []GoogleMediaItem   `json:"media,omitempty"`
	CallToAction *GoogleCallToAction `json:"callToAction,omitempty"`
	State        string              `json:"state,omitempty"`
	SearchURL    string              `json:"searchUrl,omitempty"`
	CreateTime   string              `json:"createTime,omitempty"`
}

type GoogleLocalPostList struct {
	LocalPosts    []GoogleLocalPost `json:"localPosts"`
	NextPageToken string            `json:"nextPageToken"`
}

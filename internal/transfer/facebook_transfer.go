package transfer

// GraphError is the error object returned by the Facebook and Instagram
// Graph APIs.
type GraphError struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

type GraphToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type GraphPaging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

type GraphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type FacebookUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FacebookPage struct {
	ID                       string                    `json:"id"`
	Name                     string                    `json:"name"`
	AccessToken              string                    `json:"access_token"`
	Category                 string                    `json:"category"`
	Tasks                    []string                  `json:"tasks"`
	InstagramBusinessAccount *InstagramBusinessAccount `json:"instagram_business_account"`
}

type FacebookPageList struct {
	Data   []FacebookPage `json:"data"`
	Paging GraphPaging    `json:"paging"`
}

type FacebookPost struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	PermalinkURL string `json:"permalink_url"`
	FullPicture  string `json:"full_picture"`
}

type FacebookPostList struct {
	Data   []FacebookPost `json:"data"`
	Paging GraphPaging    `json:"paging"`
}

package transfer

type LinkedinToken struct {
	AccessToken           string `json:"access_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Scope                 string `json:"scope"`
}

type LinkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Email   string `json:"email"`
}

type LinkedinOrgACL struct {
	RoleAssignee         string `json:"roleAssignee"`
	State                string `json:"state"`
	Role                 string `json:"role"`
	OrganizationalTarget string `json:"organizationalTarget"`
}

type LinkedinPaging struct {
	Count int `json:"count"`
	Start int `json:"start"`
	Total int `json:"total"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

type LinkedinOrgACLList struct {
	Elements []LinkedinOrgACL `json:"elements"`
	Paging   LinkedinPaging   `json:"paging"`
}

type LinkedinOrganization struct {
	ID            int64  `json:"id"`
	LocalizedName string `json:"localizedName"`
	VanityName    string `json:"vanityName"`
}

type LinkedinRegisterUploadRequest struct {
	RegisterUploadRequest LinkedinRegisterUpload `json:"registerUploadRequest"`
}

type LinkedinRegisterUpload struct {
	Recipes              []string                      `json:"recipes"`
	Owner                string                        `json:"owner"`
	ServiceRelationships []LinkedinServiceRelationship `json:"serviceRelationships"`
}

type LinkedinServiceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type LinkedinRegisterUploadResponse struct {
	Value struct {
		UploadMechanism map[string]struct {
			UploadURL string            `json:"uploadUrl"`
			Headers   map[string]string `json:"headers"`
		} `json:"uploadMechanism"`
		Asset string `json:"asset"`
	} `json:"value"`
}

type LinkedinText struct {
	Text string `json:"text"`
}

type LinkedinMedia struct {
	Status      string        `json:"status"`
	Media       string        `json:"media,omitempty"`
	OriginalURL string        `json:"originalUrl,omitempty"`
	Title       *LinkedinText `json:"title,omitempty"`
}

type LinkedinShareContent struct {
	ShareCommentary    LinkedinText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []LinkedinMedia `json:"media,omitempty"`
}

type LinkedinUGCPost struct {
	ID              string                          `json:"id,omitempty"`
	Author          string                          `json:"author"`
	LifecycleState  string                          `json:"lifecycleState"`
	SpecificContent map[string]LinkedinShareContent `json:"specificContent"`
	Visibility      map[string]string               `json:"visibility"`
	Created         *struct {
		Time int64 `json:"time"`
	} `json:"created,omitempty"`
}

type LinkedinUGCPostList struct {
	Elements []LinkedinUGCPost `json:"elements"`
	Paging   LinkedinPaging    `json:"paging"`
}

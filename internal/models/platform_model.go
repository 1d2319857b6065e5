package models

import (
	"slices"
	"strings"

	"github.com/maheshrc27/socialsync/internal/apperr"
)

// Platform is the closed set of supported networks.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	LinkedIn  Platform = "linkedin"
	Pinterest Platform = "pinterest"
	Google    Platform = "google"
)

var platforms = []Platform{Instagram, Facebook, TikTok, YouTube, LinkedIn, Pinterest, Google}

func Platforms() []Platform {
	return slices.Clone(platforms)
}

// ParsePlatform is the only place a free-form name becomes a Platform.
func ParsePlatform(name string) (Platform, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "googlebusiness", "google_business", "gbp":
		return Google, nil
	}

	p := Platform(name)
	if !p.Valid() {
		return "", apperr.Validation("platform", "unknown platform %q", name)
	}
	return p, nil
}

func (p Platform) Valid() bool {
	return slices.Contains(platforms, p)
}

func (p Platform) String() string { return string(p) }

type EntityType string

const (
	EntityPage         EntityType = "page"
	EntityProfile      EntityType = "profile"
	EntityBoard        EntityType = "board"
	EntityChannel      EntityType = "channel"
	EntityBusiness     EntityType = "business"
	EntityOrganization EntityType = "organization"
)

type ConnectionStatus string

const (
	StatusActive       ConnectionStatus = "active"
	StatusExpired      ConnectionStatus = "expired"
	StatusPending      ConnectionStatus = "pending"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// Connection methods select between login flows of one platform.
const (
	MethodInstagramBusiness = "instagram_business"
	MethodFacebook          = "facebook"
)

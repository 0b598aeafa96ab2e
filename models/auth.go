package models

// ServiceClaimsInfo identifies the calling service of an internal API request.
type ServiceClaimsInfo struct {
	Service string `json:"service"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

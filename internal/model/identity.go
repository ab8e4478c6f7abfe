package model

// Identity is the signed-in user's profile and credentials as held by the
// credential store. The whole record is persisted as one snapshot.
type Identity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	DisplayName  string `json:"screen_name,omitempty"`
	APIKey       string `json:"rebrickable_api_key,omitempty"`
	APIUserToken string `json:"rebrickable_user_token,omitempty"`
	AccessToken  string `json:"token,omitempty"`
}

// PublicIdentity is what the API echoes back to the browser; credentials are
// reduced to presence flags.
type PublicIdentity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	DisplayName  string `json:"screen_name,omitempty"`
	HasAPIKey    bool   `json:"has_api_key"`
	HasUserToken bool   `json:"has_user_token"`
}

// Public strips secrets from the identity.
func (i Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:           i.ID,
		Email:        i.Email,
		Name:         i.Name,
		ImageURL:     i.ImageURL,
		DisplayName:  i.DisplayName,
		HasAPIKey:    i.APIKey != "",
		HasUserToken: i.APIUserToken != "",
	}
}

// WithProfile overlays the stored profile settings onto the identity.
func (i Identity) WithProfile(p *Profile) Identity {
	if p == nil {
		return i
	}
	i.DisplayName = p.ScreenName
	i.APIKey = p.APIKey
	i.APIUserToken = p.UserToken
	if i.Email == "" {
		i.Email = p.Email
	}
	if i.Name == "" {
		i.Name = p.Name
	}
	return i
}

package model

import "time"

// Profile is a row of the local user-profile store.
type Profile struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	Name       string    `json:"name" db:"name"`
	ScreenName string    `json:"screen_name" db:"screen_name"`
	APIKey     string    `json:"rebrickable_api_key" db:"rebrickable_api_key"`
	UserToken  string    `json:"rebrickable_user_token" db:"rebrickable_user_token"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Redacted returns a copy with the Rebrickable credentials removed.
func (p Profile) Redacted() Profile {
	p.APIKey = ""
	p.UserToken = ""
	return p
}

// ProfileSettings is a partial update of the onboarding fields. Nil
// pointers leave the stored value untouched.
type ProfileSettings struct {
	ScreenName *string `json:"screen_name"`
	APIKey     *string `json:"rebrickable_api_key"`
	UserToken  *string `json:"rebrickable_user_token"`
}

// Apply merges the settings into p.
func (s ProfileSettings) Apply(p *Profile) {
	if s.ScreenName != nil {
		p.ScreenName = *s.ScreenName
	}
	if s.APIKey != nil {
		p.APIKey = *s.APIKey
	}
	if s.UserToken != nil {
		p.UserToken = *s.UserToken
	}
}

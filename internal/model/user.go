package model

import (
	"encoding/json"
	"fmt"
)

// User is a workspace member or a bot.
type User struct {
	// Object is always "user".
	Object string `json:"object"`

	UserID    string  `json:"id"`
	Type      string  `json:"type,omitempty"`
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Person and Bot hold the type-specific payload, at most one is set.
	Person json.RawMessage `json:"person,omitempty"`
	Bot    json.RawMessage `json:"bot,omitempty"`
}

// ID returns the user identifier.
func (u *User) ID() string {
	return u.UserID
}

// Kind returns KindUser.
func (u *User) Kind() Kind {
	return KindUser
}

// UnmarshalJSON decodes a user and checks the object tag.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if err := checkObject(v.Object, KindUser); err != nil {
		return err
	}
	if v.UserID == "" {
		return fmt.Errorf("%w: user id", ErrMissingField)
	}
	*u = User(v)
	return nil
}

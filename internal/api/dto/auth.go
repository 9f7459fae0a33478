package dto

import "strings"

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type SignInResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
	CSRFToken    string `json:"csrfToken"`
}

type IntrospectRequest struct {
	Token string `json:"token"`
}

type IntrospectResponse struct {
	Valid bool   `json:"valid"`
	Scope string `json:"scope"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
}

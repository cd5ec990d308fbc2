package model

// Credential is the process-wide bearer credential pair. It is set on
// login, cleared on logout or on any 401 response.
type Credential struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

func (c Credential) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

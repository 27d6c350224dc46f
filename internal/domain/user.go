package domain

// User is the identity carried by the signed auth token issued by the
// external sign-in service.
type User struct {
	ID       string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	IsTester bool   `json:"isTester"`
}

// Elevated users get a larger session quota.
func (u *User) Elevated() bool {
	return u != nil && (u.IsAdmin || u.IsTester)
}

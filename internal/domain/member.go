package domain

// Member is whoever is acting on a session: a signed-in user, the holder of
// the session access id, or both.
type Member struct {
	User     *User  `json:"user,omitempty"`
	AccessID string `json:"-"`
}

func NewMember(user *User, accessID string) *Member {
	return &Member{
		User:     user,
		AccessID: accessID,
	}
}

func (m *Member) UserID() string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.ID
}

// CanControl reports whether the member may mutate the session.
func (m *Member) CanControl(s *Session) bool {
	if m == nil || s == nil {
		return false
	}
	if m.User != nil && (m.User.ID == s.CreatedBy || m.User.IsAdmin) {
		return true
	}
	return m.AccessID != "" && m.AccessID == s.AccessID
}

// CanManage reports whether the member may rename or delete the session.
func (m *Member) CanManage(s *Session) bool {
	if m == nil || m.User == nil || s == nil {
		return false
	}
	return m.User.ID == s.CreatedBy || m.User.IsAdmin
}

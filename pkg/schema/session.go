package schema

// AuthSession is the persisted authentication state.
// IsAuthenticated is true if and only if Token is set.
type AuthSession struct {
	Token           *string `json:"token"`
	IsAuthenticated bool    `json:"isAuthenticated"`
}

// Normalize restores the invariant between Token and IsAuthenticated,
// trusting the token.
func (s AuthSession) Normalize() AuthSession {
	s.IsAuthenticated = s.Token != nil
	return s
}

package auth

// MemberState is the outcome of a membership check.
type MemberState int

const (
	// MemberStatusUnknown means the profile could not be fetched.
	MemberStatusUnknown MemberState = iota
	MemberStatusNotLoggedIn
	MemberStatusNotMember
	MemberStatusMember
)

func (s MemberState) String() string {
	switch s {
	case MemberStatusNotLoggedIn:
		return "not logged in"
	case MemberStatusNotMember:
		return "not a member"
	case MemberStatusMember:
		return "member"
	default:
		return "unknown"
	}
}

// MemberStatus is the result of CheckMemberStatus. Err is set when State is
// MemberStatusUnknown.
type MemberStatus struct {
	State   MemberState
	Profile *Profile
	Err     error
}

// IsMember reports membership, treating every failure as not a member.
func (s MemberStatus) IsMember() bool {
	return s.State == MemberStatusMember
}

// TokenStatus is a diagnostic view of the stored token.
type TokenStatus struct {
	HasToken     bool
	HasTokenName bool
	TokenName    string
	// Preview is the first 20 characters of the token value followed by
	// "...". A shorter value is kept whole, still followed by "...".
	Preview string
	// Backup is the token-info copy from the store, value truncated the
	// same way.
	Backup *TokenInfo
}

const previewLen = 20

func preview(v string) string {
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= previewLen {
		return v + "..."
	}
	return string(r[:previewLen]) + "..."
}

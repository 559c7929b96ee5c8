package domain

import "time"

type RefreshToken struct {
	Token     string     `json:"token"`
	CreatedOn time.Time  `json:"createdOn"`
	ExpiredOn time.Time  `json:"expiredOn"`
	RevokedOn *time.Time `json:"revokedOn,omitempty"`
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiredOn)
}

func (t RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedOn == nil && !t.IsExpired(now)
}

// inactiveSince is the moment the token stopped being usable.
func (t RefreshToken) inactiveSince() time.Time {
	if t.RevokedOn != nil && t.RevokedOn.Before(t.ExpiredOn) {
		return *t.RevokedOn
	}
	return t.ExpiredOn
}

// ActiveRefreshToken returns the first active token of the user.
func (u User) ActiveRefreshToken(now time.Time) (RefreshToken, bool) {
	for _, t := range u.RefreshTokens {
		if t.IsActive(now) {
			return t, true
		}
	}
	return RefreshToken{}, false
}

func (u User) FindRefreshToken(token string) (int, bool) {
	for i, t := range u.RefreshTokens {
		if t.Token == token {
			return i, true
		}
	}
	return -1, false
}

// PruneRefreshTokens drops tokens that have been inactive for longer than retention.
func PruneRefreshTokens(tokens []RefreshToken, now time.Time, retention time.Duration) []RefreshToken {
	kept := make([]RefreshToken, 0, len(tokens))
	cutoff := now.Add(-retention)
	for _, t := range tokens {
		if t.IsActive(now) || t.inactiveSince().After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

package user

import "errors"

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UpdateProfileDTO struct {
	Bio    *string `json:"bio"    binding:"omitempty,max=2000"`
	Avatar *string `json:"avatar" binding:"omitempty,max=512"`
}

// Profile is the public view of a user.
type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	Avatar         string `json:"avatar"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
	PortfolioCount int64  `json:"portfolio_count"`
}

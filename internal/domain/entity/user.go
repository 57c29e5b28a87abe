package entity

import "time"

type User struct {
	ID            string    `json:"id" firestore:"id"`
	Email         string    `json:"email" firestore:"email"`
	DisplayName   string    `json:"display_name" firestore:"displayName"`
	PhotoURL      string    `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
	LikedListings []string  `json:"liked_listings" firestore:"likedListings"`
	DeviceTokens  []string  `json:"-" firestore:"deviceTokens,omitempty"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
}

func (u *User) HasLiked(listingID string) bool {
	for _, id := range u.LikedListings {
		if id == listingID {
			return true
		}
	}
	return false
}

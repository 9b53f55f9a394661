// Structure of User Model in Mechat.

package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

// Saved in DB as a document of the users collection.
// Only the fields the relay reads are mapped, the rest of the document is left untouched.
type User struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Username string             `json:"username,omitempty" bson:"username,omitempty"`
	Avatar   *Avatar            `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

type Avatar struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// Hex form of the user id, the identity used by the connection registry.
func (u User) IDHex() string {
	return u.ID.Hex()
}

// Ref returns the populated sender / reactor shape sent to clients.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID.Hex(), Name: u.Name}
}

// UserRef is a user reference populated with the display name.
type UserRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

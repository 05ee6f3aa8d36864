package domain

// User is seed identity data. The core only reads it, to resolve display
// names and default locations.
type User struct {
	ID      string
	Name    string
	Address string
}

// SeedUsers returns the fixed demo identities loaded when the user table
// is empty.
func SeedUsers() []User {
	return []User{
		{ID: "user1", Name: "Hong Gildong", Address: "Mangwon-dong, Mapo-gu, Seoul"},
		{ID: "user2", Name: "Kim Younghee", Address: "Sang-dong, Bucheon-si, Gyeonggi"},
	}
}

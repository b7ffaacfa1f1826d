package entity

// User is the session identity. Id is opaque to the client.
type User struct {
	Id   string
	Name string
}

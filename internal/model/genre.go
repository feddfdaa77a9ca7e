package model

// Genre is a catalog label attached to plays. Names are unique.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name
}

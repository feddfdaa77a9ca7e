package model

// Play is a stage production. Genres and Actors are the many-to-many links
// and are only populated by the repository methods that load them.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – unique title.
//	Description – free text, may be empty.
//	Image       – storage key of the poster (nil until uploaded).
type Play struct {
	ID          uint64  // plays.id
	Title       string  // plays.title
	Description string  // plays.description
	Image       *string // plays.image (nullable)
	Genres      []Genre
	Actors      []Actor
}

// GenreNames lists the linked genre names in load order.
func (p Play) GenreNames() []string {
	out := make([]string, 0, len(p.Genres))
	for _, g := range p.Genres {
		out = append(out, g.Name)
	}
	return out
}

// ActorNames lists the linked actors' full names in load order.
func (p Play) ActorNames() []string {
	out := make([]string, 0, len(p.Actors))
	for _, a := range p.Actors {
		out = append(out, a.FullName())
	}
	return out
}

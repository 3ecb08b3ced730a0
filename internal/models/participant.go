package models

// ParticipantKind tags which table a user id resolves against. Owner and
// renter ids live in separate tables, so every cross-entity reference to a
// user carries its kind alongside the id.
type ParticipantKind string

const (
	KindOwner  ParticipantKind = "owner"
	KindRenter ParticipantKind = "renter"
)

func (k ParticipantKind) Valid() bool {
	return k == KindOwner || k == KindRenter
}

package enums

type PostKind string

const (
	PostKindReview  PostKind = "review"
	PostKindListing PostKind = "listing"
)

func (k PostKind) Valid() bool {
	switch k {
	case PostKindReview, PostKindListing:
		return true
	}
	return false
}

package trips

type TripStatus string

const (
	StatusDraft     TripStatus = "draft"
	StatusPublished TripStatus = "published"
	StatusRetired   TripStatus = "retired"
)

func (s TripStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusRetired:
		return true
	}
	return false
}

func (s TripStatus) String() string {
	return string(s)
}

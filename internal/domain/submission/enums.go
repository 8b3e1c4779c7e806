package submission

// Genres accepted by the intake form. Unknown values are rejected,
// never coerced.
var Genres = []string{
	"Ambient",
	"Blues",
	"Classical",
	"Disco",
	"Electronic",
	"Funk",
	"House",
	"Hip-Hop",
	"Jazz",
	"Pop",
	"R&B",
	"Reggae",
	"Rock",
	"Soul",
	"Techno",
}

// Conditions follows the Goldmine grading scale.
var Conditions = []string{
	"Mint (M)",
	"Near Mint (NM)",
	"Very Good Plus (VG+)",
	"Very Good (VG)",
	"Good Plus (G+)",
	"Good (G)",
	"Fair (F)",
	"Poor (P)",
}

const (
	MinYear  = 1900
	MaxPrice = 100000
)

func IsValidGenre(value string) bool {
	return contains(Genres, value)
}

func IsValidCondition(value string) bool {
	return contains(Conditions, value)
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

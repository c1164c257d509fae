package domain

// Kind discriminates candidate variants.
type Kind string

const (
	KindDestination Kind = "destination"
	KindProperty    Kind = "property"
	KindRestaurant  Kind = "restaurant"
	KindExperience  Kind = "experience"
)

// Candidate is anything a traveller can pick. Identity is Info().ID.
type Candidate interface {
	Info() Listing
	Kind() Kind
}

// Listing carries the fields every candidate variant shares.
type Listing struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	City        string        `json:"city,omitempty" yaml:"city"`
	Country     string        `json:"country,omitempty" yaml:"country"`
	Description string        `json:"description,omitempty" yaml:"description"`
	ImageURL    string        `json:"image_url,omitempty" yaml:"image_url"`
	Price       float64       `json:"price" yaml:"price"`
	Rating      float64       `json:"rating" yaml:"rating"`
	Activities  []ActivityTag `json:"activities,omitempty" yaml:"activities"`
}

func (l Listing) Info() Listing { return l }

// HasActivity reports whether the listing is tagged with a.
func (l Listing) HasActivity(a ActivityTag) bool {
	for _, t := range l.Activities {
		if t == a {
			return true
		}
	}
	return false
}

type Destination struct {
	Listing
	BestTime string `json:"best_time,omitempty"`
	AvgTemp  string `json:"avg_temp,omitempty"`
	Featured bool   `json:"featured,omitempty"`
}

func (Destination) Kind() Kind { return KindDestination }

// Property is a place to stay; Price is the nightly rate.
type Property struct {
	Listing
	RoomType  string   `json:"room_type,omitempty"`
	Guests    int      `json:"guests,omitempty"`
	Bedrooms  int      `json:"bedrooms,omitempty"`
	Bathrooms int      `json:"bathrooms,omitempty"`
	Reviews   int      `json:"reviews,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Host      string   `json:"host,omitempty"`
	Superhost bool     `json:"superhost,omitempty"`
}

func (Property) Kind() Kind { return KindProperty }

type Restaurant struct {
	Listing
	Cuisine   string   `json:"cuisine,omitempty"`
	PriceTier string   `json:"price_tier,omitempty"`
	Specialty string   `json:"specialty,omitempty"`
	Dietary   []string `json:"dietary,omitempty"`
}

func (Restaurant) Kind() Kind { return KindRestaurant }

type Experience struct {
	Listing
	Category string `json:"category,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (Experience) Kind() Kind { return KindExperience }

// IDs returns candidate ids in order.
func IDs[T Candidate](items []T) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Info().ID)
	}
	return out
}

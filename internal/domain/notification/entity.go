package notification

// Category groups events for the presentation layer.
type Category string

const (
	CategoryClue Category = "clue"
	CategoryArea Category = "area"
)

// Event is what the engine hands to the notification collaborator.
// Rendering and delivery guarantees belong to the collaborator.
type Event struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category Category `json:"category"`
}

package model

// Lesson is one step of a language learning path.
type Lesson struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Points     int    `json:"points"`
}

// LearningPath is the ordered lesson list for one programming language.
type LearningPath struct {
	Language string   `json:"language"`
	Lessons  []Lesson `json:"lessons"`
}

// Badge is awarded once a user's points reach Points.
type Badge struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

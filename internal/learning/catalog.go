// Package learning holds the static learning-path and badge catalogue.
package learning

import (
	"sort"

	"github.com/sakif/accessai/internal/model"
)

const (
	Beginner     = "Beginner"
	Intermediate = "Intermediate"
	Advanced     = "Advanced"
)

var paths = map[string][]model.Lesson{
	"javascript": {
		{ID: 1, Title: "Variables and Data Types", Difficulty: Beginner, Points: 50},
		{ID: 2, Title: "Functions and Scope", Difficulty: Beginner, Points: 75},
		{ID: 3, Title: "Arrays and Loops", Difficulty: Intermediate, Points: 100},
		{ID: 4, Title: "Promises and Async/Await", Difficulty: Intermediate, Points: 150},
		{ID: 5, Title: "Build a Mini Project", Difficulty: Advanced, Points: 200},
	},
	"python": {
		{ID: 1, Title: "Basics of Python", Difficulty: Beginner, Points: 50},
		{ID: 2, Title: "Lists and Dictionaries", Difficulty: Beginner, Points: 75},
		{ID: 3, Title: "Functions and Modules", Difficulty: Intermediate, Points: 100},
		{ID: 4, Title: "File Handling", Difficulty: Intermediate, Points: 150},
		{ID: 5, Title: "Data Analysis with Pandas", Difficulty: Advanced, Points: 200},
	},
	"java": {
		{ID: 1, Title: "Classes and Objects", Difficulty: Beginner, Points: 50},
		{ID: 2, Title: "Methods and Constructors", Difficulty: Beginner, Points: 75},
		{ID: 3, Title: "Inheritance and Polymorphism", Difficulty: Intermediate, Points: 100},
		{ID: 4, Title: "Exception Handling", Difficulty: Intermediate, Points: 150},
		{ID: 5, Title: "Build a Java App", Difficulty: Advanced, Points: 200},
	},
	"cpp": {
		{ID: 1, Title: "Pointers and Memory", Difficulty: Beginner, Points: 50},
		{ID: 2, Title: "Classes and Objects", Difficulty: Beginner, Points: 75},
		{ID: 3, Title: "Templates", Difficulty: Intermediate, Points: 100},
		{ID: 4, Title: "STL (Standard Template Library)", Difficulty: Intermediate, Points: 150},
		{ID: 5, Title: "Build a C++ Project", Difficulty: Advanced, Points: 200},
	},
	"solidity": {
		{ID: 1, Title: "Introduction to Smart Contracts", Difficulty: Beginner, Points: 50},
		{ID: 2, Title: "Writing Your First Contract", Difficulty: Beginner, Points: 75},
		{ID: 3, Title: "State Variables and Functions", Difficulty: Intermediate, Points: 100},
		{ID: 4, Title: "Build a Voting Contract", Difficulty: Intermediate, Points: 150},
		{ID: 5, Title: "Create a Simple Token", Difficulty: Advanced, Points: 200},
	},
}

// badges are ordered by threshold.
var badges = []model.Badge{
	{Name: "Beginner Coder", Points: 100, Description: "Completed your first lesson!"},
	{Name: "Solidity Starter", Points: 200, Description: "Completed a Solidity lesson!"},
	{Name: "Challenge Champion", Points: 300, Description: "Solved 3 coding challenges!"},
	{Name: "Master Coder", Points: 500, Description: "Earned 500 points!"},
}

// Languages returns the supported languages in alphabetical order.
func Languages() []string {
	langs := make([]string, 0, len(paths))
	for l := range paths {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Path returns the lessons for language.
func Path(language string) (model.LearningPath, bool) {
	lessons, ok := paths[language]
	if !ok {
		return model.LearningPath{}, false
	}
	out := make([]model.Lesson, len(lessons))
	copy(out, lessons)
	return model.LearningPath{Language: language, Lessons: out}, true
}

// Lesson finds one lesson by language and ID.
func Lesson(language string, id int) (model.Lesson, bool) {
	for _, l := range paths[language] {
		if l.ID == id {
			return l, true
		}
	}
	return model.Lesson{}, false
}

func Badges() []model.Badge {
	out := make([]model.Badge, len(badges))
	copy(out, badges)
	return out
}

// EarnedBadges lists every badge whose threshold points has reached.
func EarnedBadges(points int) []model.Badge {
	var out []model.Badge
	for _, b := range badges {
		if points >= b.Points {
			out = append(out, b)
		}
	}
	return out
}

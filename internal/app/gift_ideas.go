package app

import (
	"fmt"
	"strings"

	"birthday_reminder_bot/internal/domain/subject"
)

type giftKey struct {
	age      int
	category subject.Category
}

var giftIdeas = map[giftKey][]string{
	{3, subject.CategoryGirl}: {"Building blocks", "Dolls and accessories", "Art supplies", "Play kitchen toys", "Picture books"},
	{3, subject.CategoryBoy}:  {"Building blocks", "Toy cars and vehicles", "Art supplies", "Construction toys", "Picture books"},
	{3, subject.CategoryAny}:  {"Building blocks", "Art supplies", "Picture books", "Stacking toys", "Musical instruments"},

	{5, subject.CategoryGirl}: {"Puzzles (50-100 pieces)", "Chapter books", "Dress-up costumes", "Craft kits", "Board games"},
	{5, subject.CategoryBoy}:  {"Puzzles (50-100 pieces)", "Chapter books", "Action figures", "Construction sets", "Board games"},
	{5, subject.CategoryAny}:  {"Puzzles (50-100 pieces)", "Chapter books", "Board games", "Craft kits", "Building sets"},

	{10, subject.CategoryGirl}: {"Advanced craft kits", "Young adult books", "Sports equipment", "STEM kits", "Art supplies"},
	{10, subject.CategoryBoy}:  {"Building sets (Lego/others)", "Young adult books", "Sports equipment", "STEM kits", "Video games (age-appropriate)"},
	{10, subject.CategoryAny}:  {"STEM kits", "Young adult books", "Sports equipment", "Board games", "Art or craft kits"},
}

// GiftIdeas returns suggestions for the age and category. Unknown categories
// fall back to the Any list for that age; unmapped ages return nil.
func GiftIdeas(age int, category subject.Category) []string {
	if ideas, ok := giftIdeas[giftKey{age, category}]; ok {
		return ideas
	}
	return giftIdeas[giftKey{age, subject.CategoryAny}]
}

func giftMessage(age int, category subject.Category) string {
	ideas := GiftIdeas(age, category)
	if len(ideas) == 0 {
		return fmt.Sprintf("Time to pick a gift for a %d-year-old.", age)
	}
	return "Gift ideas: " + strings.Join(ideas, ", ") + "."
}

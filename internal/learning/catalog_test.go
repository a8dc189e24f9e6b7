package learning

import "testing"

func TestLanguages(t *testing.T) {
	got := Languages()
	want := []string{"cpp", "java", "javascript", "python", "solidity"}
	if len(got) != len(want) {
		t.Fatalf("Languages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Languages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPath_EveryLanguageHasFiveLessons(t *testing.T) {
	for _, lang := range Languages() {
		p, ok := Path(lang)
		if !ok || len(p.Lessons) != 5 {
			t.Errorf("Path(%q) = %d lessons, ok=%v", lang, len(p.Lessons), ok)
		}
	}
	if _, ok := Path("cobol"); ok {
		t.Error("Path(cobol) should not exist")
	}
}

func TestPath_ReturnsCopy(t *testing.T) {
	p, _ := Path("python")
	p.Lessons[0].Points = 9999
	if l, _ := Lesson("python", 1); l.Points != 50 {
		t.Errorf("catalogue was mutated through Path(): points = %d", l.Points)
	}
}

func TestLesson(t *testing.T) {
	l, ok := Lesson("solidity", 5)
	if !ok || l.Title != "Create a Simple Token" || l.Points != 200 {
		t.Errorf("Lesson(solidity, 5) = %+v, %v", l, ok)
	}
	if _, ok := Lesson("solidity", 6); ok {
		t.Error("Lesson(solidity, 6) should not exist")
	}
}

func TestEarnedBadges(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{250, 2},
		{500, 4},
	}
	for _, tt := range tests {
		if got := EarnedBadges(tt.points); len(got) != tt.want {
			t.Errorf("EarnedBadges(%d) = %d badges, want %d", tt.points, len(got), tt.want)
		}
	}
}

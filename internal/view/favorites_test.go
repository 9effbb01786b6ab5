package view

import "testing"

func TestFavoritesKeepsInsertionOrder(t *testing.T) {
	var f Favorites
	for _, name := range []string{"Paris", "Berlin", "Paris", "Tokyo", "Berlin"} {
		f.Add(name)
	}
	got := f.List()
	want := []string{"Paris", "Berlin", "Tokyo"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFavoritesListIsCopy(t *testing.T) {
	var f Favorites
	f.Add("Paris")
	l := f.List()
	l[0] = "London"
	if !f.Contains("Paris") || f.Contains("London") {
		t.Fatalf("list mutation leaked into favorites")
	}
}

package pdftext

import (
	"reflect"
	"testing"
)

func cb(text string, x0, y0 float64) charBox {
	return charBox{text: text, x0: x0, y0: y0, x1: x0 + 5, y1: y0 + 8, page: 1}
}

func TestGroupWords(t *testing.T) {
	// Two lines; the second line's characters arrive out of order and with
	// a slight baseline wobble.
	chars := []charBox{
		cb("P", 10, 100), cb("I", 15, 100), cb("P", 20, 100), cb("E", 25, 100),
		cb("6", 10, 120.5), cb("1", 5, 120),
	}

	words := groupWords(chars)
	if len(words) != 2 {
		t.Fatalf("words = %d, want 2: %+v", len(words), words)
	}
	if words[0].Text != "PIPE" {
		t.Errorf("first word = %q, want PIPE", words[0].Text)
	}
	if words[0].X0 != 10 || words[0].X1 != 30 {
		t.Errorf("first word box = [%v,%v], want [10,30]", words[0].X0, words[0].X1)
	}
	if words[1].Text != "16" {
		t.Errorf("second word = %q, want 16", words[1].Text)
	}
}

func TestGroupWordsSplitsAtGaps(t *testing.T) {
	// "AB" then a 10pt gap to "CD": one line, two words.
	chars := []charBox{
		cb("A", 0, 50), cb("B", 5, 50),
		cb("C", 20, 50), cb("D", 25, 50),
	}
	words := groupWords(chars)
	got := []string{}
	for _, w := range words {
		got = append(got, w.Text)
	}
	if !reflect.DeepEqual(got, []string{"AB", "CD"}) {
		t.Errorf("words = %v, want [AB CD]", got)
	}
}

func TestGroupWordsKeepsTightKerning(t *testing.T) {
	// A 1pt gap is under both the absolute and the relative threshold, so
	// the characters stay in one word.
	chars := []charBox{
		cb("4", 0, 50), cb(`"`, 6, 50),
	}
	words := groupWords(chars)
	if len(words) != 1 || words[0].Text != `4"` {
		t.Errorf("words = %+v, want one word 4\"", words)
	}
}

func TestGroupWordsEmpty(t *testing.T) {
	if got := groupWords(nil); got != nil {
		t.Errorf("groupWords(nil) = %v, want nil", got)
	}
}

func TestValidateRejectsJunk(t *testing.T) {
	if err := Validate([]byte("this is not a pdf")); err == nil {
		t.Error("expected an error for non-PDF input")
	}
}

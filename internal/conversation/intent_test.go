package conversation

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
	}{
		{"no", IntentNegative},
		{"No.", IntentNegative},
		{"nope, that's all thanks!", IntentNegative},
		{"No thank you", IntentNegative},
		{"nothing else", IntentNegative},
		{"I'm good, thanks", IntentNegative},
		{"That’s it", IntentNegative},
		{"all good 👍", IntentNegative},
		{"yes", IntentAffirmative},
		{"Yes please", IntentAffirmative},
		{"thanks!", IntentAffirmative},
		{"sounds great, cheers", IntentAffirmative},
		{"yes, I'd like to add something", IntentAddMore},
		{"also we'd love a rooftop pool", IntentAddMore},
		{"no, I want to add a sea view", IntentAddMore},
		{"one more thing", IntentAddMore},
		{"London", IntentOther},
		{"Morocco in May", IntentOther},
		{"", IntentOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ClassifyIntent(tt.in); got != tt.want {
				t.Fatalf("ClassifyIntent(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsQuestion(t *testing.T) {
	questions := []string{"Is Jordan safe in August?", "how long is the flight", "Can I bring my dog", "why do you need my email"}
	for _, q := range questions {
		if !IsQuestion(q) {
			t.Fatalf("expected %q to be a question", q)
		}
	}
	answers := []string{"John", "May 12 to 16", "London", "luxury and foodie"}
	for _, a := range answers {
		if IsQuestion(a) {
			t.Fatalf("expected %q not to be a question", a)
		}
	}
}

func TestIsCorrection(t *testing.T) {
	if !IsCorrection("Actually my email is jo@x.com") {
		t.Fatalf("expected correction")
	}
	if !IsCorrection("sorry, I meant 3 people") {
		t.Fatalf("expected correction")
	}
	if IsCorrection("my email is jo@x.com") {
		t.Fatalf("did not expect correction")
	}
}

func TestNoteContent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"yes", ""},
		{"I want to add something", ""},
		{"yes, I'd like to add something", ""},
		{"also we'd love a rooftop pool", "also we'd love a rooftop pool"},
		{"My partner is vegetarian", "My partner is vegetarian"},
	}
	for _, tt := range tests {
		if got := noteContent(tt.in); got != tt.want {
			t.Fatalf("noteContent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

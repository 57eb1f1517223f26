package memory

import (
	"fmt"
	"sort"
	"strings"
)

// Format renders known facts and recent messages as the memory context
// block handed to the LLM.
func Format(user string, facts []string, recent []Message) string {
	if len(facts) == 0 && len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	if len(facts) > 0 {
		fmt.Fprintf(&b, "Known facts about %s:\n", user)
		for _, f := range facts {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteByte('\n')
		}
	}
	if len(recent) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Recent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Search ranks facts and messages by how many query words they contain.
// Words shorter than three letters are ignored.
func Search(query string, facts []string, history []Message, limit int) []string {
	words := keywords(query)
	if len(words) == 0 {
		return nil
	}

	type hit struct {
		text  string
		score int
		order int
	}
	var hits []hit
	score := func(text string) int {
		lower := strings.ToLower(text)
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}
	for i, f := range facts {
		if s := score(f); s > 0 {
			hits = append(hits, hit{text: f, score: s + 1, order: i})
		}
	}
	for i, m := range history {
		if m.Role != RoleUser {
			continue
		}
		if s := score(m.Content); s > 0 {
			hits = append(hits, hit{text: "they said: " + m.Content, score: s, order: len(facts) + i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order > hits[j].order
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

// Answer turns search hits into a reply for Ask.
func Answer(user string, hits []string) string {
	if len(hits) == 0 {
		return fmt.Sprintf("I don't know anything about that for %s yet.", user)
	}
	return fmt.Sprintf("About %s: %s.", user, strings.Join(hits, "; "))
}

var stopwords = map[string]bool{
	"the": true, "and": true, "what": true, "who": true, "does": true,
	"did": true, "are": true, "you": true, "about": true, "know": true,
	"their": true, "they": true, "with": true, "for": true, "that": true,
	"this": true, "have": true, "has": true, "like": true, "user": true,
}

func keywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

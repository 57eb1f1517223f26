package memory

import (
	"strings"
	"time"
)

// Person is what the File backend knows about one user.
type Person struct {
	Name     string    `json:"name"`
	Facts    []string  `json:"facts"`
	History  []Message `json:"history"`
	LastSeen time.Time `json:"last_seen"`
}

// NewPerson creates a Person with the given name.
func NewPerson(name string) *Person {
	return &Person{
		Name:     normalizeName(name),
		Facts:    []string{},
		LastSeen: time.Now(),
	}
}

// AddFact adds a fact unless an identical one (case-insensitive) exists.
// It reports whether the fact was added.
func (p *Person) AddFact(fact string) bool {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return false
	}
	for _, f := range p.Facts {
		if strings.EqualFold(f, fact) {
			return false
		}
	}
	p.Facts = append(p.Facts, fact)
	p.LastSeen = time.Now()
	return true
}

// AddMessages appends to the history, keeping at most limit entries.
func (p *Person) AddMessages(limit int, msgs ...Message) {
	p.History = append(p.History, msgs...)
	if limit > 0 && len(p.History) > limit {
		p.History = append([]Message(nil), p.History[len(p.History)-limit:]...)
	}
	p.LastSeen = time.Now()
}

// Recent returns the last n messages.
func (p *Person) Recent(n int) []Message {
	if n <= 0 || n >= len(p.History) {
		return p.History
	}
	return p.History[len(p.History)-n:]
}

// HasFact checks if the person has a fact containing query (case-insensitive).
func (p *Person) HasFact(query string) bool {
	query = strings.ToLower(query)
	for _, fact := range p.Facts {
		if strings.Contains(strings.ToLower(fact), query) {
			return true
		}
	}
	return false
}

// TimeSinceLastSeen returns the duration since the person was last seen.
func (p *Person) TimeSinceLastSeen() time.Duration {
	return time.Since(p.LastSeen)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

package store

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// KnowledgeSection is one passage of the standards knowledge base, e.g. a
// numbered section of an ISO standard.
type KnowledgeSection struct {
	ID    string
	Title string
	Body  string
}

// KnowledgeStore is an in-memory read-only view of the knowledge base file.
type KnowledgeStore struct {
	sections map[string]KnowledgeSection
	order    []string
}

type rawSection struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body_text" yaml:"body_text"`
}

// LoadKnowledge reads a knowledge base file: a mapping from section_id to
// {title, body_text}, produced by an external parsing step.
func LoadKnowledge(path string) (*KnowledgeStore, error) {
	var raw map[string]rawSection
	if err := readStoreFile(path, &raw); err != nil {
		return nil, err
	}

	s := &KnowledgeStore{
		sections: make(map[string]KnowledgeSection, len(raw)),
		order:    make([]string, 0, len(raw)),
	}
	for id, sec := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: %s contains a section with an empty id", ErrLoad, path)
		}
		s.sections[id] = KnowledgeSection{ID: id, Title: sec.Title, Body: sec.Body}
		s.order = append(s.order, id)
	}
	sort.Strings(s.order)
	return s, nil
}

func (s *KnowledgeStore) Lookup(id string) (KnowledgeSection, bool) {
	sec, ok := s.sections[id]
	return sec, ok
}

// All iterates the sections in ascending id order.
func (s *KnowledgeStore) All() iter.Seq[KnowledgeSection] {
	return func(yield func(KnowledgeSection) bool) {
		for _, id := range s.order {
			if !yield(s.sections[id]) {
				return
			}
		}
	}
}

func (s *KnowledgeStore) Len() int { return len(s.order) }

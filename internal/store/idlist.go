package store

import "strings"

// IDList is an ordered sequence of unique IDs. Uniqueness is case-insensitive
// and the original casing of the first insertion is preserved. Order reflects
// insertion order; display sorting is a presentation concern elsewhere.
type IDList struct {
	ids  []string
	seen map[string]struct{}
}

// NewIDList builds a list from the given IDs, dropping duplicates.
func NewIDList(ids ...string) *IDList {
	l := &IDList{seen: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		l.Insert(id)
	}
	return l
}

// Insert appends id unless an equal ID (case-insensitive) is already present.
// It returns false for duplicates and empty IDs.
func (l *IDList) Insert(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	key := strings.ToLower(id)
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.ids = append(l.ids, id)
	l.seen[key] = struct{}{}
	return true
}

// Remove deletes id from the list, returning false when absent.
func (l *IDList) Remove(id string) bool {
	key := strings.ToLower(strings.TrimSpace(id))
	if _, ok := l.seen[key]; !ok {
		return false
	}
	delete(l.seen, key)
	for i, v := range l.ids {
		if strings.ToLower(v) == key {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether id is present (case-insensitive).
func (l *IDList) Contains(id string) bool {
	_, ok := l.seen[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// IDs returns the IDs in insertion order. The returned slice is a copy.
func (l *IDList) IDs() []string {
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// Len returns the number of IDs in the list.
func (l *IDList) Len() int { return len(l.ids) }

// Clone returns a deep copy of the list.
func (l *IDList) Clone() *IDList {
	return NewIDList(l.ids...)
}

// EncodeLine renders the list as a single semicolon-joined line.
func (l *IDList) EncodeLine() string {
	return strings.Join(l.ids, ";")
}

// ParseLine builds a list from persisted file content. The current format is
// one semicolon-joined line; legacy files with one ID per line still load.
func ParseLine(content string) *IDList {
	content = strings.TrimSpace(content)
	if content == "" {
		return NewIDList()
	}
	var parts []string
	if strings.Contains(content, "\n") {
		parts = strings.Split(content, "\n")
	} else {
		parts = strings.Split(content, ";")
	}
	return NewIDList(parts...)
}

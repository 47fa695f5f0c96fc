package document

import (
	"errors"
	"math/rand"
	"strconv"
	"time"
)

var (
	ErrNotFound = errors.New("item not found")
)

// NewID returns a base-36 timestamp followed by a random base-36 suffix.
// IDs are never reused after deletion.
func NewID() string {
	suffix := strconv.FormatInt(rand.Int63(), 36)
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix
}

// NewSocial returns a social link with editor defaults.
func NewSocial() Social {
	return Social{ID: NewID(), Icon: FallbackIcon, URL: "#", Color: DefaultSocialColor, NewTab: true}
}

// NewProject returns a project card with editor defaults.
func NewProject() Project {
	return Project{
		ID:       NewID(),
		Title:    "New Project",
		Image:    PlaceholderImage,
		Link:     "#",
		Size:     DefaultProjectSize,
		NewTab:   true,
		AutoFlip: AutoFlip{Interval: DefaultFlipInterval},
	}
}

func (d *Document) AddSocial(s Social) Social {
	if s.ID == "" {
		s.ID = NewID()
	}
	d.Socials = append(d.Socials, s)
	return s
}

func (d *Document) Social(id string) (*Social, error) {
	i := d.socialIndex(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &d.Socials[i], nil
}

func (d *Document) RemoveSocial(id string) error {
	i := d.socialIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	d.Socials = append(d.Socials[:i], d.Socials[i+1:]...)
	return nil
}

// MoveSocial moves the social with id to index, shifting the others.
// Out-of-range indexes are clamped.
func (d *Document) MoveSocial(id string, index int) error {
	i := d.socialIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	d.Socials = move(d.Socials, i, index)
	return nil
}

func (d *Document) AddProject(p Project) Project {
	if p.ID == "" {
		p.ID = NewID()
	}
	d.Projects = append(d.Projects, p)
	return p
}

func (d *Document) Project(id string) (*Project, error) {
	i := d.projectIndex(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &d.Projects[i], nil
}

func (d *Document) RemoveProject(id string) error {
	i := d.projectIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	d.Projects = append(d.Projects[:i], d.Projects[i+1:]...)
	return nil
}

func (d *Document) MoveProject(id string, index int) error {
	i := d.projectIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	d.Projects = move(d.Projects, i, index)
	return nil
}

func (d *Document) socialIndex(id string) int {
	for i := range d.Socials {
		if d.Socials[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) projectIndex(id string) int {
	for i := range d.Projects {
		if d.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

func move[T any](items []T, from, to int) []T {
	if to < 0 {
		to = 0
	}
	if to > len(items)-1 {
		to = len(items) - 1
	}
	if from == to {
		return items
	}
	item := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]T{item}, items[to:]...)...)
	return items
}

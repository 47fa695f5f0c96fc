package document

// Document is the single profile document: what the public page shows and
// what the admin API edits. Field names are the JSON wire contract shared
// by the bootstrap seed, the Migrator and the remote blob content.
type Document struct {
	Profile  Profile   `json:"profile"`
	Socials  []Social  `json:"socials"`
	Projects []Project `json:"projects"`
	Theme    Theme     `json:"theme"`
	Sections Sections  `json:"sections"`
	Admin    Admin     `json:"admin"`
}

type Profile struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Avatar      string `json:"avatar"`
	ContactText string `json:"contactText"`
	ContactURL  string `json:"contactUrl"`
}

// Social is one icon link. ID is stable across edits and is the ordering key.
type Social struct {
	ID     string `json:"id"`
	Icon   string `json:"icon"`
	URL    string `json:"url"`
	Label  string `json:"label"`
	Color  string `json:"color"`
	NewTab bool   `json:"newTab"`
}

// Project is one flip card.
type Project struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Image     string   `json:"image"`
	BackImage string   `json:"backImage,omitempty"`
	Link      string   `json:"link,omitempty"`
	Size      string   `json:"size"`
	NewTab    bool     `json:"newTab"`
	Hidden    bool     `json:"hidden"`
	AutoFlip  AutoFlip `json:"autoFlip"`
}

type AutoFlip struct {
	Enabled bool `json:"enabled"`
	// Interval in seconds.
	Interval int `json:"interval"`
}

type Theme struct {
	Style        string  `json:"style"`
	PrimaryColor string  `json:"primaryColor"`
	BgColor      string  `json:"bgColor"`
	FontFamily   string  `json:"fontFamily"`
	FontSize     float64 `json:"fontSize"`
}

type Sections struct {
	Socials  Section `json:"socials"`
	Projects Section `json:"projects"`
}

// Section overrides visibility, heading and layout of one group.
type Section struct {
	Visible bool   `json:"visible"`
	Title   string `json:"title"`
	Style   string `json:"style"`
}

type Admin struct {
	PasswordHash string `json:"passwordHash"`
}

// Public returns a copy safe to serve anonymously (no admin digest).
func (d *Document) Public() *Document {
	c := d.Clone()
	c.Admin = Admin{}
	return c
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Socials = make([]Social, len(d.Socials))
	copy(c.Socials, d.Socials)
	c.Projects = make([]Project, len(d.Projects))
	copy(c.Projects, d.Projects)
	return &c
}

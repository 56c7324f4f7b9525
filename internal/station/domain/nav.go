package domain

// NavLink is one entry of the site nav bar.
type NavLink struct {
	Href  string
	Label string
	Icon  string
}

// defaultHash is the route an empty fragment resolves to.
const defaultHash = "#playing"

// Links returns the nav bar entries in display order.
func Links() []NavLink {
	return []NavLink{
		{Href: "/#submit", Label: "Submit", Icon: "+"},
		{Href: "/#playing", Label: "Now Playing", Icon: "♪"},
		{Href: "/#library", Label: "Library", Icon: "≡"},
		{Href: "/#admin", Label: "Admin", Icon: "⚙"},
	}
}

// Hash returns the fragment part of the link (e.g. "#library").
func (l NavLink) Hash() string {
	for i := range l.Href {
		if l.Href[i] == '#' {
			return l.Href[i:]
		}
	}
	return ""
}

// IsActive reports whether this link is the active one for the current location hash.
// An empty hash counts as the now-playing route.
func (l NavLink) IsActive(hash string) bool {
	return l.Hash() == hash || (hash == "" && l.Hash() == defaultHash)
}

// PageTitle decorates a page title with the station name, matching the site's tabs.
func PageTitle(stationName, title string) string {
	if stationName == "" {
		stationName = DefaultName
	}
	if title == "" {
		return stationName
	}
	return stationName + " — " + title
}

package models

type NavItem struct {
	Name string
	URL  string
}

type Navigation struct {
	Items []NavItem
}

// Layout is the data every rendered page shares: title, chrome and the
// session snapshot the guards already resolved.
type Layout struct {
	Title           string
	Nav             Navigation
	ActiveNav       string
	User            *UserProfile
	Role            string
	IsAuthenticated bool
	// AdminArea switches the chrome to the back-office navigation bar and
	// suppresses the footer. Presentation only; the route guards enforce
	// access.
	AdminArea bool
	Error     string
	Notice    string
}

var MainNav = Navigation{
	Items: []NavItem{
		{Name: "Home", URL: "/"},
		{Name: "Audiobooks", URL: "/audiobooks"},
		{Name: "Library", URL: "/library"},
		{Name: "Cart", URL: "/cart"},
	},
}

var AdminNav = Navigation{
	Items: []NavItem{
		{Name: "Users", URL: "/admin/users"},
		{Name: "Books", URL: "/admin/books"},
		{Name: "Orders", URL: "/admin/orders"},
	},
}

var PublicNav = Navigation{
	Items: []NavItem{
		{Name: "Home", URL: "/"},
		{Name: "Sign In", URL: "/login"},
		{Name: "Register", URL: "/register"},
	},
}

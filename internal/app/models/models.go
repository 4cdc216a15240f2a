package models

// Roles as the remote audiobook service reports them.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// UserProfile is the profile record returned by the remote service on login.
// The storefront passes it through as-is and never validates its shape, so
// every consumer has to tolerate a nil profile even when a token is present.
type UserProfile struct {
	CustomerID int64  `json:"customerId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
}

// Audiobook mirrors the remote catalog record. Time is the runtime in minutes.
type Audiobook struct {
	BookID      int64   `json:"bookId"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Narrator    string  `json:"narrator"`
	Time        int     `json:"time"`
	ReleaseDate string  `json:"release_date"`
	Language    string  `json:"language"`
	Stars       float64 `json:"stars"`
	Price       float64 `json:"price"`
	Ratings     int     `json:"ratings"`
	HasAudio    bool    `json:"audioData"`
}

// Order is a completed purchase as the admin order feed reports it.
type Order struct {
	OrderID      int64   `json:"orderId"`
	UserID       int64   `json:"userId"`
	AudiobookIDs []int64 `json:"audiobookIds"`
	PaymentMode  string  `json:"paymentMode"`
	OrderDate    string  `json:"orderDate"`
	Status       string  `json:"status"`
}

// BookCart is a pending (not yet ordered) cart in the admin feed.
type BookCart struct {
	CartID       int64   `json:"cartId"`
	UserID       int64   `json:"userId"`
	AudiobookIDs []int64 `json:"audiobookIds"`
}

// CartTotal sums item prices the same way the cart and payment pages do.
func CartTotal(items []Audiobook) float64 {
	var total float64
	for _, it := range items {
		total += it.Price
	}
	return total
}

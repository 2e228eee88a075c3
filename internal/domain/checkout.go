package domain

// CheckoutRequest is submitted by a client that wants to buy a book. It is never persisted.
type CheckoutRequest struct {
	ProductID       int64
	Price           string
	Title           string
	ImageURL        string
	ExternalPriceID string
}

// CheckoutSession is the payment gateway's hosted purchase flow.
type CheckoutSession struct {
	ID       string
	URL      string
	Status   string
	Metadata map[string]string
}

const (
	MetadataProductID = "bookId"
	MetadataTitle     = "title"
)

// ProductID parses the product reference carried in session metadata.
func (s *CheckoutSession) ProductID() (int64, error) {
	return parseProductID(s.Metadata)
}

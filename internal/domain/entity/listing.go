package entity

import "time"

type Listing struct {
	ID          string     `json:"id" firestore:"id"`
	UserID      string     `json:"user_id" firestore:"userId"`
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description,omitempty" firestore:"description,omitempty"`
	Price       float64    `json:"price" firestore:"price"`
	Sold        bool       `json:"sold" firestore:"sold"`
	SoldAt      *time.Time `json:"sold_at,omitempty" firestore:"soldAt,omitempty"`
	SoldTo      string     `json:"sold_to,omitempty" firestore:"soldTo,omitempty"`
	Likes       int        `json:"likes" firestore:"likes"`
	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// ListingSale describes a mark-sold write. Price is optional.
type ListingSale struct {
	ListingID string
	BuyerID   string
	Price     *float64
	At        time.Time
}

type SaleOutcome int

const (
	SaleApply SaleOutcome = iota
	// SaleNoop means the listing is already sold to the same buyer.
	SaleNoop
	// SaleConflict means the listing is already sold to someone else.
	SaleConflict
)

func (l *Listing) SaleOutcome(buyerID string) SaleOutcome {
	if !l.Sold {
		return SaleApply
	}
	if l.SoldTo == buyerID {
		return SaleNoop
	}
	return SaleConflict
}

// Apply marks the listing sold in memory. Callers check SaleOutcome first.
func (l *Listing) Apply(sale ListingSale) {
	at := sale.At
	l.Sold = true
	l.SoldAt = &at
	l.SoldTo = sale.BuyerID
	if sale.Price != nil && *sale.Price > 0 {
		l.Price = *sale.Price
	}
	l.UpdatedAt = at
}

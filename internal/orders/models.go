package orders

import "time"

type Category string

const (
	CategoryFood      Category = "FOOD"
	CategoryMedicine  Category = "MEDICINE"
	CategoryAccessory Category = "ACCESSORY"
	CategoryOther     Category = "OTHER"
)

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "COD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMidtrans     PaymentMethod = "MIDTRANS"
)

// ParsePaymentMethod validates a client supplied payment method.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCOD, PaymentBankTransfer, PaymentMidtrans:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

type Product struct {
	ID       string
	Title    string
	Price    int64 // minor currency units
	Stock    int
	Category Category
}

// CartLine is a cart row joined with the current product snapshot.
type CartLine struct {
	ID        int64
	UserID    int64
	ProductID string
	Quantity  int
	Product   Product
}

type Order struct {
	ID              string        `json:"id"`
	UserID          int64         `json:"userId"`
	Status          Status        `json:"status"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Total           int64         `json:"total"`
	TrackingNumber  string        `json:"trackingNumber,omitempty"`
	Courier         string        `json:"courier,omitempty"`
	ShippedAt       *time.Time    `json:"shippedAt,omitempty"`
	PaymentProofURL string        `json:"paymentProofUrl,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Items           []OrderItem   `json:"items,omitempty"`
}

type OrderItem struct {
	OrderID      string `json:"orderId"`
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unitPrice"`
}

type User struct {
	ID    int64
	Email string
	Name  string
}

// Shipment is the fulfillment metadata written with the SHIPPED transition.
type Shipment struct {
	TrackingNumber string
	Courier        string
	ShippedAt      time.Time
}

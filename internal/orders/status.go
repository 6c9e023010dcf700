package orders

type Status string

const (
	StatusAwaitingPayment Status = "AWAITING_PAYMENT"
	StatusProcessing      Status = "PROCESSING"
	StatusPacked          Status = "PACKED"
	StatusShipped         Status = "SHIPPED"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// ParseStatus validates a status coming from outside the service.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAwaitingPayment, StatusProcessing, StatusPacked,
		StatusShipped, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Trigger identifies who or what requests a transition.
type Trigger string

const (
	TriggerGatewaySettled Trigger = "gateway_settled"
	TriggerGatewayFailed  Trigger = "gateway_failed"
	TriggerProofApproved  Trigger = "proof_approved"
	TriggerCustomerCancel Trigger = "customer_cancel"
	TriggerAdmin          Trigger = "admin"
)

// InitialStatus is the status of a freshly created order. COD has no payment step.
func InitialStatus(m PaymentMethod) Status {
	if m == PaymentCOD {
		return StatusProcessing
	}
	return StatusAwaitingPayment
}

type edge struct {
	from, to Status
}

type guard func(o *Order, in TransitionInput) error

// TransitionInput carries the data guards look at besides the order itself.
type TransitionInput struct {
	Trigger      Trigger
	RiskAccepted bool
	Shipment     *Shipment
}

var validNext = map[edge]map[Trigger]guard{
	{StatusAwaitingPayment, StatusProcessing}: {
		TriggerGatewaySettled: func(o *Order, in TransitionInput) error {
			if !in.RiskAccepted {
				return ErrInvalidTransition
			}
			return nil
		},
		TriggerProofApproved: func(o *Order, in TransitionInput) error {
			if o.PaymentMethod != PaymentBankTransfer || o.PaymentProofURL == "" {
				return ErrInvalidTransition
			}
			return nil
		},
	},
	{StatusAwaitingPayment, StatusCancelled}: {
		TriggerCustomerCancel: notCOD,
		TriggerGatewayFailed:  notCOD,
	},
	{StatusProcessing, StatusCancelled}: {
		TriggerCustomerCancel: func(o *Order, in TransitionInput) error {
			if o.PaymentMethod != PaymentCOD {
				return ErrInvalidTransition
			}
			return nil
		},
	},
	{StatusProcessing, StatusPacked}: {TriggerAdmin: nil},
	{StatusPacked, StatusShipped}: {
		TriggerAdmin: func(o *Order, in TransitionInput) error {
			if in.Shipment == nil || in.Shipment.TrackingNumber == "" || in.Shipment.Courier == "" {
				return ErrMissingShipmentInfo
			}
			return nil
		},
	},
	{StatusShipped, StatusCompleted}: {TriggerAdmin: nil},
}

func notCOD(o *Order, in TransitionInput) error {
	if o.PaymentMethod == PaymentCOD {
		return ErrInvalidTransition
	}
	return nil
}

// CheckTransition validates moving o to the status to under the given input.
// The order is not modified.
func CheckTransition(o *Order, to Status, in TransitionInput) error {
	triggers, ok := validNext[edge{o.Status, to}]
	if !ok {
		return &TransitionError{From: o.Status, To: to}
	}
	g, ok := triggers[in.Trigger]
	if !ok {
		return &TransitionError{From: o.Status, To: to}
	}
	if g == nil {
		return nil
	}
	if err := g(o, in); err != nil {
		if err == ErrInvalidTransition {
			return &TransitionError{From: o.Status, To: to}
		}
		return err
	}
	return nil
}

// Rank orders statuses along the lifecycle. Every allowed transition moves an
// order to a higher rank.
func (s Status) Rank() int {
	switch s {
	case StatusAwaitingPayment:
		return 1
	case StatusProcessing:
		return 2
	case StatusPacked:
		return 3
	case StatusShipped:
		return 4
	case StatusCompleted:
		return 5
	case StatusCancelled:
		return 6
	}
	return 0
}

// CanDelete reports whether an order in status s may be removed.
func CanDelete(s Status) bool {
	return s.IsTerminal()
}

// releasesStock reports whether entering to from from hands reserved units back.
func releasesStock(from, to Status) bool {
	return to == StatusCancelled && (from == StatusAwaitingPayment || from == StatusProcessing)
}

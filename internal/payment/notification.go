package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferencePrefix starts every transaction reference sent to the gateway.
const ReferencePrefix = "HOLYCAT-"

var (
	ErrMalformedReference = errors.New("malformed transaction reference")
	ErrInvalidSignature   = errors.New("invalid notification signature")
	// ErrIncompleteNotification is well-formed JSON that lacks the fields
	// needed to find an order.
	ErrIncompleteNotification = errors.New("notification lacks order_id or transaction_status")
)

// Outcome is the gateway transaction_status.
type Outcome string

const (
	OutcomeCapture    Outcome = "capture"
	OutcomeSettlement Outcome = "settlement"
	OutcomePending    Outcome = "pending"
	OutcomeCancel     Outcome = "cancel"
	OutcomeExpire     Outcome = "expire"
	OutcomeDeny       Outcome = "deny"
)

// Risk is the gateway fraud_status.
type Risk string

const (
	RiskNone      Risk = ""
	RiskAccept    Risk = "accept"
	RiskChallenge Risk = "challenge"
	RiskDeny      Risk = "deny"
)

// Result is what a notification means for the order.
type Result int

const (
	ResultPending Result = iota
	ResultPaid
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultPaid:
		return "paid"
	case ResultFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Notification is the normalized webhook payload.
type Notification struct {
	Reference     string
	TransactionID string
	Outcome       Outcome
	Risk          Risk
	StatusCode    string
	GrossAmount   decimal.NullDecimal
	PaymentType   string
	Signature     string
}

// NewReference builds the transaction reference for an order. The millisecond
// suffix keeps references unique when a session is requested more than once.
func NewReference(orderID string, at time.Time) string {
	return fmt.Sprintf("%s%s-%d", ReferencePrefix, orderID, at.UnixMilli())
}

// ParseReference extracts the internal order id from HOLYCAT-<uuid>-<unix-ms>.
func ParseReference(ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, ReferencePrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	if _, err := strconv.ParseInt(rest[i+1:], 10, 64); err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	id, err := uuid.Parse(rest[:i])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return id.String(), nil
}

// Resolve maps a gateway outcome and fraud flag to a Result. A deny from the
// fraud engine fails the payment whatever the transaction status says;
// challenged captures stay pending until the gateway decides.
func Resolve(outcome Outcome, risk Risk) Result {
	if risk == RiskDeny {
		return ResultFailed
	}
	switch outcome {
	case OutcomeCapture:
		if risk == RiskAccept {
			return ResultPaid
		}
		return ResultPending
	case OutcomeSettlement:
		if risk == RiskAccept || risk == RiskNone {
			return ResultPaid
		}
		return ResultPending
	case OutcomeCancel, OutcomeExpire, OutcomeDeny:
		return ResultFailed
	}
	return ResultPending
}

// Signature computes sha512(reference + status_code + gross_amount + server key).
func Signature(reference, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(reference + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify checks the notification signature against the raw gross amount string
// as it was received on the wire.
func (n Notification) Verify(rawGrossAmount, serverKey string) error {
	want := Signature(n.Reference, n.StatusCode, rawGrossAmount, serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(n.Signature))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

type wireNotification struct {
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
}

// DecodeNotification parses the webhook body. The raw gross amount string is
// returned as well since the signature is computed over it.
func DecodeNotification(body []byte) (Notification, string, error) {
	var w wireNotification
	if err := json.Unmarshal(body, &w); err != nil {
		return Notification{}, "", fmt.Errorf("decode notification: %w", err)
	}
	if w.OrderID == "" || w.TransactionStatus == "" {
		return Notification{}, "", fmt.Errorf("decode notification: %w", ErrIncompleteNotification)
	}
	n := Notification{
		Reference:     w.OrderID,
		TransactionID: w.TransactionID,
		Outcome:       Outcome(strings.ToLower(w.TransactionStatus)),
		Risk:          Risk(strings.ToLower(w.FraudStatus)),
		StatusCode:    w.StatusCode,
		PaymentType:   w.PaymentType,
		Signature:     w.SignatureKey,
	}
	if w.GrossAmount != "" {
		amt, err := decimal.NewFromString(w.GrossAmount)
		if err != nil {
			return Notification{}, "", fmt.Errorf("decode notification: gross_amount: %w", err)
		}
		n.GrossAmount = decimal.NullDecimal{Decimal: amt, Valid: true}
	}
	return n, w.GrossAmount, nil
}

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Keys under which a session is mirrored in CredentialPersistence.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// CredentialPersistence is the durable mirror of the session. Values are
// opaque strings; a missing key reads as "" with a nil error.
type CredentialPersistence interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// Credentials are sent to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ID is an identifier that the server may send as a JSON string or number.
type ID string

// UnmarshalJSON accepts both "42" and 42.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)

		return nil
	}

	if string(data) == "null" {
		*id = ""
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())

	return nil
}

func (id ID) String() string {
	return string(id)
}

// Int returns the identifier as an integer when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// UserSummary describes the authenticated user.
type UserSummary struct {
	ID       ID       `json:"id"                 yaml:"id"`
	Username string   `json:"username,omitempty" yaml:"username,omitempty"`
	Email    string   `json:"email,omitempty"    yaml:"email,omitempty"`
	Name     string   `json:"name,omitempty"     yaml:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"    yaml:"roles,omitempty"`
}

// Session is the in-memory credential state. An empty AccessToken means
// unauthenticated.
type Session struct {
	AccessToken  string       `json:"access_token"            yaml:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	User         *UserSummary `json:"user,omitempty"          yaml:"user,omitempty"`
}

// Authenticated reports whether s holds an access token.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Product is an inventory item.
type Product struct {
	ID        ID        `json:"id"                   yaml:"id"`
	SKU       string    `json:"sku"                  yaml:"sku"`
	Name      string    `json:"name"                 yaml:"name"`
	Price     float64   `json:"price"                yaml:"price"`
	Stock     int       `json:"stock"                yaml:"stock"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ProductCreate is the payload for creating a product.
type ProductCreate struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// ProductUpdate is the payload for partially updating a product.
type ProductUpdate struct {
	Name  *string  `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// StockAdjustment changes the stock level of a product by Delta.
type StockAdjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// Customer is a billable party.
type Customer struct {
	ID      ID     `json:"id"                yaml:"id"`
	Name    string `json:"name"              yaml:"name"`
	Email   string `json:"email,omitempty"   yaml:"email,omitempty"`
	Phone   string `json:"phone,omitempty"   yaml:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"  yaml:"tax_id,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// CustomerRequest is the payload for creating or replacing a customer.
type CustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
}

// InvoiceLine is one line of an invoice.
type InvoiceLine struct {
	ProductID ID      `json:"product_id" yaml:"product_id"`
	Quantity  int     `json:"quantity"   yaml:"quantity"`
	UnitPrice float64 `json:"unit_price" yaml:"unit_price"`
}

// Invoice is a bill issued to a customer.
type Invoice struct {
	ID         ID            `json:"id"                yaml:"id"`
	Number     string        `json:"number"            yaml:"number"`
	CustomerID ID            `json:"customer_id"       yaml:"customer_id"`
	Status     string        `json:"status"            yaml:"status"`
	Total      float64       `json:"total"             yaml:"total"`
	Lines      []InvoiceLine `json:"lines,omitempty"   yaml:"lines,omitempty"`
	IssuedAt   time.Time     `json:"issued_at"         yaml:"issued_at"`
	PaidAt     *time.Time    `json:"paid_at,omitempty" yaml:"paid_at,omitempty"`
}

// InvoiceCreate is the payload for issuing an invoice.
type InvoiceCreate struct {
	CustomerID ID            `json:"customer_id"`
	Lines      []InvoiceLine `json:"lines"`
}

// Payment records how an invoice was settled.
type Payment struct {
	AccountID ID      `json:"account_id"`
	Amount    float64 `json:"amount"`
	Reference string  `json:"reference,omitempty"`
}

// TreasuryAccount is a cash or bank account.
type TreasuryAccount struct {
	ID       ID      `json:"id"       yaml:"id"`
	Name     string  `json:"name"     yaml:"name"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance"  yaml:"balance"`
}

// Movement is a debit or credit on a treasury account.
type Movement struct {
	ID          ID        `json:"id"                    yaml:"id"`
	AccountID   ID        `json:"account_id"            yaml:"account_id"`
	Amount      float64   `json:"amount"                yaml:"amount"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"           yaml:"occurred_at"`
}

// MovementCreate is the payload for recording a movement.
type MovementCreate struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// Backup is a server-side snapshot of the business data.
type Backup struct {
	ID        ID        `json:"id"         yaml:"id"`
	Filename  string    `json:"filename"   yaml:"filename"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// HealthReport is returned by the diagnostics endpoint.
type HealthReport struct {
	Status   string            `json:"status"             yaml:"status"`
	Version  string            `json:"version,omitempty"  yaml:"version,omitempty"`
	Uptime   string            `json:"uptime,omitempty"   yaml:"uptime,omitempty"`
	Database string            `json:"database,omitempty" yaml:"database,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"   yaml:"checks,omitempty"`
}

package cart

import (
	"errors"
	"sync"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Line is one product in the cart. Quantity is always >= 1.
type Line struct {
	Product  domain.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Reader is the read-only view handed to display layers
type Reader interface {
	Lines() []Line
	Len() int
	Total() decimal.Decimal
	Quantity(productID string) int
}

// Cart holds the in-progress sale. Lines keep insertion order and are keyed by product id.
type Cart struct {
	mu    sync.RWMutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// AddItem merges quantity into the existing line for product.ID or appends a new line
func (c *Cart) AddItem(product domain.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(product.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		return nil
	}
	c.lines = append(c.lines, Line{Product: product, Quantity: quantity})
	return nil
}

// RemoveItem deletes the line for productID; absent ids are ignored
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// UpdateQuantity overwrites the line quantity. A quantity <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity = quantity
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines with subtotals filled in
func (c *Cart) Lines() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		l.Subtotal = subtotal(l)
		out[i] = l
	}
	return out
}

func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Quantity returns the quantity already in the cart for productID, 0 if absent
func (c *Cart) Quantity(productID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Total is recomputed from the lines on every call
func (c *Cart) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(subtotal(l))
	}
	return total
}

// Snapshot captures the lines as transaction items at the current prices
func (c *Cart) Snapshot() []domain.TransactionItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]domain.TransactionItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, domain.TransactionItem{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	return items
}

// ReadOnly returns a Reader backed by c that cannot be asserted back to *Cart
func (c *Cart) ReadOnly() Reader {
	return readOnly{c: c}
}

type readOnly struct {
	c *Cart
}

func (r readOnly) Lines() []Line                 { return r.c.Lines() }
func (r readOnly) Len() int                      { return r.c.Len() }
func (r readOnly) Total() decimal.Decimal        { return r.c.Total() }
func (r readOnly) Quantity(productID string) int { return r.c.Quantity(productID) }

func (c *Cart) indexOf(productID string) int {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(productID string) {
	if i := c.indexOf(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func subtotal(l Line) decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
